package notifications

import (
	"context"

	"dalgoctl/internal/client"
	"dalgoctl/internal/logging"
	"dalgoctl/internal/types"
)

func (c *Controller) PreferencesOpen() bool { return c.prefsOpen }

func (c *Controller) OpenPreferences()  { c.prefsOpen = true }
func (c *Controller) ClosePreferences() { c.prefsOpen = false }

// Preferences returns the last loaded preferences, or nil before a load.
func (c *Controller) Preferences() *types.UserPreferences {
	if c.prefs == nil {
		return nil
	}
	out := *c.prefs
	return &out
}

func (c *Controller) SavingPreferences() bool { return c.prefsSaving }

type PreferencesResult struct {
	Prefs *types.UserPreferences
	Saved bool
	Err   error
}

func (c *Controller) LoadPreferencesFunc() func(context.Context) PreferencesResult {
	backend := c.backend
	return func(ctx context.Context) PreferencesResult {
		prefs, err := backend.GetPreferences(ctx)
		return PreferencesResult{Prefs: prefs, Err: err}
	}
}

func (c *Controller) BeginSavePreferences(prefs types.UserPreferences) (func(context.Context) PreferencesResult, error) {
	if c.prefsSaving {
		return nil, ErrBusy
	}
	c.prefsSaving = true
	backend := c.backend
	return func(ctx context.Context) PreferencesResult {
		saved, err := backend.UpdatePreferences(ctx, prefs)
		return PreferencesResult{Prefs: saved, Saved: true, Err: err}
	}, nil
}

// ApplyPreferences takes a load or save result. Load errors are logged; save
// errors also raise an error toast.
func (c *Controller) ApplyPreferences(res PreferencesResult) error {
	if res.Saved {
		c.prefsSaving = false
	}
	if res.Err != nil {
		c.logger.Warn("preferences request failed",
			logging.F("saved", res.Saved),
			logging.F("error", res.Err.Error()),
		)
		if res.Saved {
			c.notifier.Error(client.UserMessage(res.Err))
		}
		return res.Err
	}
	if res.Prefs != nil {
		prefs := *res.Prefs
		c.prefs = &prefs
	}
	if res.Saved {
		c.notifier.Success(PreferencesSavedMessage)
	}
	return nil
}

func (c *Controller) LoadPreferences(ctx context.Context) (*types.UserPreferences, error) {
	if err := c.ApplyPreferences(c.LoadPreferencesFunc()(ctx)); err != nil {
		return nil, err
	}
	return c.Preferences(), nil
}

func (c *Controller) SavePreferences(ctx context.Context, prefs types.UserPreferences) (*types.UserPreferences, error) {
	fn, err := c.BeginSavePreferences(prefs)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyPreferences(fn(ctx)); err != nil {
		return nil, err
	}
	return c.Preferences(), nil
}
