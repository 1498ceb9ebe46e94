package cli

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/tjfontaine/hookrelay/internal/pipeline"
	"github.com/tjfontaine/hookrelay/internal/pkg/config"
)

type jsonResult struct {
	Status   string          `json:"status"`
	ExitCode int             `json:"exit_code"`
	Modified bool            `json:"modified"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// writeOutput writes the hook output for res in the configured mode.
// Suppressed results write nothing.
func writeOutput(w io.Writer, mode string, res *pipeline.Result) error {
	if res.Output == nil {
		return nil
	}

	if mode == config.OutputJSON {
		out := jsonResult{
			Status:   res.ExitCode().Status(),
			ExitCode: int(res.ExitCode()),
			Modified: res.Decision.Modified(),
		}
		if out.Modified {
			out.Data = res.Decision.ModifiedPayload
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	if _, err := w.Write(bytes.TrimRight(res.Output, " \t\r\n")); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
