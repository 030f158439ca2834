package client

import (
	"errors"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// fileTokenSource reads the session token from disk on every call so that an
// external login flow can rotate it without restarting the console.
type fileTokenSource struct {
	path string
}

func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
