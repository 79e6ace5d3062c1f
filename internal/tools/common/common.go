package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ezenity/ezenity-api/internal/tools/ui"
)

// LoadEnvFile loads KEY=VALUE pairs from path without overriding variables
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open env file: %w", err)
	}
	defer func() { _ = f.Close() }()
	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

type ciResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details"`
	Error   string   `json:"error,omitempty"`
}

// PrintCIResult writes a single JSON line summarising a tool run.
func PrintCIResult(ok bool, title string, details []string, err error) {
	res := ciResult{OK: ok, Title: title, Details: details}
	if res.Details == nil {
		res.Details = []string{}
	}
	if err != nil {
		res.Error = err.Error()
	}
	b, _ := json.Marshal(res)
	fmt.Println(string(b))
}

// Execute runs fn directly with a deadline in CI mode, otherwise under the
// interactive runner.
func Execute(ci bool, title string, timeout time.Duration, fn func(context.Context) ([]string, error)) ([]string, error) {
	if ci {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		details, err := fn(ctx)
		PrintCIResult(err == nil, title, details, err)
		return details, err
	}
	return ui.Run(title, fn)
}
