package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli/styles"
	"github.com/thenoetrevino/kanban/internal/models"
)

// OutputFormatter handles three output modes: JSON, quiet, and human-readable
type OutputFormatter struct {
	JSON   bool
	Quiet  bool
	Out    io.Writer
	ErrOut io.Writer
}

// Success outputs successful operation result
func (f *OutputFormatter) Success(data any) error {
	if f.Quiet {
		switch v := data.(type) {
		case interface{ GetID() int }:
			_, err := fmt.Fprintf(f.Out, "%d\n", v.GetID())
			return err
		case []*models.Board:
			return f.printIDs(len(v), func(i int) int { return v[i].ID })
		case []*models.List:
			return f.printIDs(len(v), func(i int) int { return v[i].ID })
		case []*models.Task:
			return f.printIDs(len(v), func(i int) int { return v[i].ID })
		}
		return nil
	}

	if f.JSON {
		return f.encode(map[string]any{
			"success": true,
			"data":    data,
		})
	}

	// Human-readable format
	_, err := fmt.Fprintln(f.Out, styles.Render(data))
	return err
}

// Message prints a human-readable confirmation. It is silent in quiet mode
// and becomes {"success":true,...fields} in JSON mode.
func (f *OutputFormatter) Message(text string, fields map[string]any) error {
	switch {
	case f.Quiet:
		return nil
	case f.JSON:
		out := map[string]any{"success": true}
		for k, v := range fields {
			out[k] = v
		}
		return f.encode(out)
	}
	_, err := fmt.Fprintln(f.Out, styles.SuccessStyle.Render("✓")+" "+text)
	return err
}

// Error outputs error information
func (f *OutputFormatter) Error(code string, message string) error {
	return f.ErrorWithSuggestion(code, message, "")
}

// ErrorWithSuggestion outputs error information with an optional suggestion
func (f *OutputFormatter) ErrorWithSuggestion(code string, message string, suggestion string) error {
	if f.JSON {
		errData := map[string]any{
			"code":    code,
			"message": message,
		}
		if suggestion != "" {
			errData["suggestion"] = suggestion
		}
		return f.encode(map[string]any{
			"success": false,
			"error":   errData,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.ErrOut, "%s %s\n", styles.ErrorStyle.Render("Error"), message)
	if suggestion != "" {
		fmt.Fprintf(f.ErrOut, "Suggestion: %s\n", suggestion)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return
func (f *OutputFormatter) Fail(err error) error {
	code, name := classify(err)
	message := err.Error()
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}
	_ = f.ErrorWithSuggestion(name, message, suggestion(code))
	return &ExitError{Code: code, Err: err, Reported: true}
}

// Usage reports a usage error
func (f *OutputFormatter) Usage(message string) error {
	_ = f.Error("USAGE", message)
	return &ExitError{Code: ExitUsage, Err: errors.New(message), Reported: true}
}

func suggestion(code int) string {
	switch code {
	case ExitUnauthenticated:
		return "Set client.token in the config file or KANBAN_TOKEN (kanban token can mint one for development)"
	case ExitForbidden:
		return "Ask the board owner to add you as a member"
	case ExitGeneral:
		return "Check that the server is running (kanban serve) and client.server_url points at it"
	}
	return ""
}

func (f *OutputFormatter) printIDs(n int, id func(int) int) error {
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(f.Out, "%d\n", id(i)); err != nil {
			return err
		}
	}
	return nil
}

func (f *OutputFormatter) encode(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	_, err = f.Out.Write(append(data, '\n'))
	return err
}
