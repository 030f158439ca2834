package main

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"

	"dalgoctl/internal/config"

	toml "github.com/pelletier/go-toml/v2"
)

type ConfigCommand struct {
	stdout io.Writer
	stderr io.Writer
}

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"

	configScopeCore = "core"
	configScopeUI   = "ui"
)

type configOutput struct {
	CoreConfigPath string                        `json:"core_config_path,omitempty" toml:"core_config_path,omitempty"`
	UIConfigPath   string                        `json:"ui_config_path,omitempty" toml:"ui_config_path,omitempty"`
	API            *effectiveAPIConfig           `json:"api,omitempty" toml:"api,omitempty"`
	Auth           *effectiveAuthConfig          `json:"auth,omitempty" toml:"auth,omitempty"`
	Logging        *effectiveLoggingConfig       `json:"logging,omitempty" toml:"logging,omitempty"`
	Storage        *effectiveStorageConfig       `json:"storage,omitempty" toml:"storage,omitempty"`
	Notifications  *effectiveNotificationsConfig `json:"notifications,omitempty" toml:"notifications,omitempty"`
	UI             *effectiveUIConfig            `json:"ui,omitempty" toml:"ui,omitempty"`
}

type coreConfigOutput struct {
	API           effectiveAPIConfig           `json:"api" toml:"api"`
	Auth          effectiveAuthConfig          `json:"auth" toml:"auth"`
	Logging       effectiveLoggingConfig       `json:"logging" toml:"logging"`
	Storage       effectiveStorageConfig       `json:"storage" toml:"storage"`
	Notifications effectiveNotificationsConfig `json:"notifications" toml:"notifications"`
}

type uiConfigOutput struct {
	Toast    uiToastConfigOutput    `json:"toast" toml:"toast"`
	Markdown uiMarkdownConfigOutput `json:"markdown" toml:"markdown"`
}

type uiToastConfigOutput struct {
	Seconds int `json:"seconds" toml:"seconds"`
}

type uiMarkdownConfigOutput struct {
	Style string `json:"style" toml:"style"`
}

type effectiveAPIConfig struct {
	BaseURL            string `json:"base_url" toml:"base_url"`
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds" toml:"http_timeout_seconds"`
}

type effectiveAuthConfig struct {
	TokenPath   string `json:"token_path,omitempty" toml:"token_path,omitempty"`
	StaticToken bool   `json:"static_token" toml:"static_token"`
}

type effectiveLoggingConfig struct {
	Level string `json:"level" toml:"level"`
}

type effectiveStorageConfig struct {
	Backend string `json:"backend" toml:"backend"`
}

type effectiveNotificationsConfig struct {
	PageSize int `json:"page_size" toml:"page_size"`
}

type effectiveUIConfig struct {
	ToastSeconds  int    `json:"toast_seconds" toml:"toast_seconds"`
	MarkdownStyle string `json:"markdown_style" toml:"markdown_style"`
}

func NewConfigCommand(stdout, stderr io.Writer) *ConfigCommand {
	return &ConfigCommand{
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *ConfigCommand) Run(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	defaults := fs.Bool("default", false, "print default config values")
	format := fs.String("format", configFormatJSON, "output format: json|toml")
	var scopes stringList
	fs.Var(&scopes, "scope", "scope to print: core|ui|all (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolvedFormat, err := resolveConfigFormat(*format)
	if err != nil {
		return err
	}
	resolvedScopes, err := resolveConfigScopes(scopes)
	if err != nil {
		return err
	}
	payload, err := c.buildOutput(*defaults, resolvedScopes)
	if err != nil {
		return err
	}
	return writeConfigOutput(c.stdout, resolvedFormat, projectedConfigPayload(payload, resolvedScopes))
}

func (c *ConfigCommand) buildOutput(defaults bool, scopes map[string]struct{}) (configOutput, error) {
	out := configOutput{}

	if scopeSelected(scopes, configScopeCore) {
		corePath, err := config.CoreConfigPath()
		if err != nil {
			return configOutput{}, err
		}
		var coreCfg config.CoreConfig
		if defaults {
			coreCfg = config.DefaultCoreConfig()
		} else {
			coreCfg, err = config.LoadCoreConfig()
			if err != nil {
				return configOutput{}, err
			}
		}
		tokenPath, err := coreCfg.ResolveTokenPath()
		if err != nil {
			return configOutput{}, err
		}
		out.CoreConfigPath = corePath
		out.API = &effectiveAPIConfig{
			BaseURL:            coreCfg.APIBaseURL(),
			HTTPTimeoutSeconds: int(coreCfg.HTTPTimeout().Seconds()),
		}
		out.Auth = &effectiveAuthConfig{
			TokenPath:   tokenPath,
			StaticToken: coreCfg.StaticToken() != "",
		}
		out.Logging = &effectiveLoggingConfig{Level: coreCfg.LogLevel()}
		out.Storage = &effectiveStorageConfig{Backend: coreCfg.StorageBackend()}
		out.Notifications = &effectiveNotificationsConfig{PageSize: coreCfg.PageSize()}
	}

	if scopeSelected(scopes, configScopeUI) {
		uiPath, err := config.UIConfigPath()
		if err != nil {
			return configOutput{}, err
		}
		var uiCfg config.UIConfig
		if defaults {
			uiCfg = config.DefaultUIConfig()
		} else {
			uiCfg, err = config.LoadUIConfig()
			if err != nil {
				return configOutput{}, err
			}
		}
		style := "dark"
		if !uiCfg.MarkdownDark() {
			style = "light"
		}
		out.UIConfigPath = uiPath
		out.UI = &effectiveUIConfig{
			ToastSeconds:  int(uiCfg.ToastDuration().Seconds()),
			MarkdownStyle: style,
		}
	}

	return out, nil
}

func writeConfigOutput(out io.Writer, format string, payload any) error {
	switch format {
	case configFormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(payload)
	case configFormatTOML:
		data, err := toml.Marshal(payload)
		if err != nil {
			return err
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		_, err = out.Write(data)
		return err
	default:
		return errors.New("unsupported format")
	}
}

// projectedConfigPayload prints a single scope in the shape of its config
// file, so the output can be saved as that file.
func projectedConfigPayload(payload configOutput, scopes map[string]struct{}) any {
	if len(scopes) != 1 {
		return payload
	}
	if scopeSelected(scopes, configScopeUI) && payload.UI != nil {
		return uiConfigOutput{
			Toast:    uiToastConfigOutput{Seconds: payload.UI.ToastSeconds},
			Markdown: uiMarkdownConfigOutput{Style: payload.UI.MarkdownStyle},
		}
	}
	if scopeSelected(scopes, configScopeCore) && payload.API != nil {
		out := coreConfigOutput{API: *payload.API}
		if payload.Auth != nil {
			out.Auth = *payload.Auth
		}
		if payload.Logging != nil {
			out.Logging = *payload.Logging
		}
		if payload.Storage != nil {
			out.Storage = *payload.Storage
		}
		if payload.Notifications != nil {
			out.Notifications = *payload.Notifications
		}
		return out
	}
	return payload
}

func resolveConfigFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", configFormatJSON:
		return configFormatJSON, nil
	case configFormatTOML:
		return configFormatTOML, nil
	default:
		return "", errors.New("invalid format: must be json or toml")
	}
}

func resolveConfigScopes(values []string) (map[string]struct{}, error) {
	all := map[string]struct{}{
		configScopeCore: {},
		configScopeUI:   {},
	}
	if len(values) == 0 {
		return all, nil
	}
	out := map[string]struct{}{}
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			scope, err := normalizeConfigScope(part)
			if err != nil {
				return nil, err
			}
			if scope == "all" {
				return all, nil
			}
			out[scope] = struct{}{}
		}
	}
	return out, nil
}

func normalizeConfigScope(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "all":
		return "all", nil
	case configScopeCore, "api":
		return configScopeCore, nil
	case configScopeUI:
		return configScopeUI, nil
	default:
		return "", errors.New("invalid scope: must be core, ui, or all")
	}
}

func scopeSelected(scopes map[string]struct{}, scope string) bool {
	_, ok := scopes[scope]
	return ok
}
