package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// claudeCodeTimeout bounds a CLI call when the caller set no deadline.
const claudeCodeTimeout = 2 * time.Minute

// claudeCodeClient implements Client by running the Claude Code CLI in print mode.
type claudeCodeClient struct {
	cliPath string
	model   string
}

// claudeCodeResponse is the JSON document printed with --output-format json.
type claudeCodeResponse struct {
	Type      string  `json:"type"`
	Result    string  `json:"result"`
	SessionID string  `json:"session_id"`
	IsError   bool    `json:"is_error"`
	TotalCost float64 `json:"total_cost_usd"`
}

func newClaudeCodeClient(cfg Config) (*claudeCodeClient, error) {
	cliPath := cfg.CLIPath
	if cliPath == "" {
		cliPath = "claude"
	}
	resolved, err := exec.LookPath(cliPath)
	if err != nil {
		return nil, fmt.Errorf("claude CLI not found at %s: %w", cliPath, err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(ProviderClaudeCode)
	}
	return &claudeCodeClient{cliPath: resolved, model: model}, nil
}

// Complete sends the system and user prompts as one single-turn print
// request. The CLI has no temperature or token controls, so those are ignored.
func (c *claudeCodeClient) Complete(ctx context.Context, req Request) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, claudeCodeTimeout)
		defer cancel()
	}

	prompt := req.User
	if req.System != "" {
		prompt = req.System + "\n\n" + req.User
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cliPath,
		"-p", prompt,
		"--output-format", "json",
		"--model", c.model,
		"--max-turns", "1",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", wrapProviderError("claudecode", ctxErr, 0)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", wrapProviderError("claudecode", err, 0)
	}

	var resp claudeCodeResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		// Older CLI builds print the reply as plain text.
		if text := strings.TrimSpace(stdout.String()); text != "" {
			return text, nil
		}
		return "", fmt.Errorf("claudecode: empty output")
	}
	if resp.IsError {
		return "", wrapProviderError("claudecode", errors.New(resp.Result), 0)
	}
	if strings.TrimSpace(resp.Result) == "" {
		return "", fmt.Errorf("claudecode: response contained no result")
	}
	return resp.Result, nil
}
