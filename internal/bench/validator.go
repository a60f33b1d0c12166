package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// waitDelay bounds how long a killed validator may keep its output open.
const waitDelay = 5 * time.Second

// ErrValidatorOutput indicates the validator printed no usable result.
var ErrValidatorOutput = errors.New("bench: validator output not understood")

// Result is what a validator reports for one model on one dataset.
type Result struct {
	metrics.Accuracy
	Speed metrics.Speed `json:"speed"`
}

// Validator scores trained weights against a dataset.
type Validator interface {
	Validate(ctx context.Context, weights, dataset, device string) (*Result, error)
}

// CommandValidator runs an external command per evaluation. The last
// non-empty line the command writes to stdout must be a JSON Result. The
// command is killed when the context passed to Validate is cancelled.
type CommandValidator struct {
	Args []string
	Env  map[string]string
}

// Validate implements Validator.
func (v CommandValidator) Validate(ctx context.Context, weights, dataset, device string) (*Result, error) {
	if len(v.Args) == 0 {
		return nil, fmt.Errorf("%w: no validator command", ErrInvalidConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := strings.NewReplacer("{weights}", weights, "{data}", dataset, "{device}", device)
	args := make([]string, len(v.Args)-1)
	for i, a := range v.Args[1:] {
		args[i] = r.Replace(a)
	}

	cmd := exec.CommandContext(ctx, r.Replace(v.Args[0]), args...)
	cmd.Env = os.Environ()
	for k, val := range v.Env {
		cmd.Env = append(cmd.Env, k+"="+val)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	// Children that inherit stdout must not hold Wait open after a kill.
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("running %s: %w", v.Args[0], err)
	}
	return ParseResult(stdout.String())
}

// rawResult mirrors Result with pointers so absent keys can be told apart
// from zero scores.
type rawResult struct {
	Precision *float64      `json:"precision"`
	Recall    *float64      `json:"recall"`
	MAP50     *float64      `json:"map50"`
	MAP5095   *float64      `json:"map"`
	Speed     metrics.Speed `json:"speed"`
}

// ParseResult decodes the last non-empty line of out. Every accuracy key must
// be present.
func ParseResult(out string) (*Result, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" {
		return nil, fmt.Errorf("%w: empty output", ErrValidatorOutput)
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(last), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidatorOutput, err)
	}

	var missing []string
	for key, v := range map[string]*float64{
		"precision": raw.Precision,
		"recall":    raw.Recall,
		"map50":     raw.MAP50,
		"map":       raw.MAP5095,
	} {
		if v == nil {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: missing %s", ErrValidatorOutput, strings.Join(missing, ", "))
	}

	return &Result{
		Accuracy: metrics.Accuracy{
			Precision: *raw.Precision,
			Recall:    *raw.Recall,
			MAP50:     *raw.MAP50,
			MAP5095:   *raw.MAP5095,
		},
		Speed: raw.Speed,
	}, nil
}
