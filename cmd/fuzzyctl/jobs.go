package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/target/fuzzysearch/internal/client"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/service"
)

type searchOptions struct {
	Params model.JobParameters
	JSON   bool
	Wait   bool
}

func parseSearchFlags(cc *commandContext, name string, args []string) (searchOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)

	var opts searchOptions
	fs.StringVar(&opts.Params.Word, "word", "", "Query word (required)")
	fs.StringVar(&opts.Params.Algorithm, "algorithm", "levenshtein", "levenshtein or ngram")
	fs.StringVar(&opts.Params.CorpusID, "corpus", "", "Corpus id (required)")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON")
	if name == "submit" {
		fs.BoolVar(&opts.Wait, "wait", false, "Watch the task until it finishes")
	}
	if err := fs.Parse(args); err != nil {
		return searchOptions{}, err
	}
	if err := opts.Params.Validate(); err != nil {
		return searchOptions{}, err
	}
	return opts, nil
}

func runSubmit(cc *commandContext, args []string) error {
	opts, err := parseSearchFlags(cc, "submit", args)
	if err != nil {
		return err
	}
	c, err := newClient(cc)
	if err != nil {
		return err
	}

	taskID, err := c.Submit(cc.Ctx, opts.Params)
	if err != nil {
		return err
	}
	if opts.Wait {
		return watch(cc, c, taskID, client.DefaultPollInterval, opts.JSON)
	}
	if opts.JSON || cc.Query != "" {
		return printJSON(cc, map[string]string{"task_id": taskID})
	}
	return writef(cc.Stdout, "%s\n", taskID)
}

func runSearch(cc *commandContext, args []string) error {
	opts, err := parseSearchFlags(cc, "search", args)
	if err != nil {
		return err
	}
	c, err := newClient(cc)
	if err != nil {
		return err
	}

	res, err := c.Search(cc.Ctx, opts.Params)
	if err != nil {
		return err
	}
	if opts.JSON || cc.Query != "" {
		return printJSON(cc, res)
	}
	if err := writef(cc.Stdout, "execution time: %.3fs\n", res.ExecutionTime); err != nil {
		return err
	}
	return printResults(cc.Stdout, res.Results)
}

type taskOptions struct {
	TaskID   string
	Interval time.Duration
	JSON     bool
}

func parseTaskFlags(cc *commandContext, name string, args []string) (taskOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)

	var opts taskOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON")
	if name == "watch" {
		fs.DurationVar(&opts.Interval, "interval", client.DefaultPollInterval, "Polling interval")
	}
	if err := fs.Parse(args); err != nil {
		return taskOptions{}, err
	}
	if fs.NArg() != 1 {
		return taskOptions{}, fmt.Errorf("usage: fuzzyctl %s [flags] <task-id>", name)
	}
	opts.TaskID = strings.TrimSpace(fs.Arg(0))
	return opts, nil
}

func runStatus(cc *commandContext, args []string) error {
	opts, err := parseTaskFlags(cc, "status", args)
	if err != nil {
		return err
	}
	c, err := newClient(cc)
	if err != nil {
		return err
	}

	st, err := c.Status(cc.Ctx, opts.TaskID)
	if err != nil {
		return err
	}
	if opts.JSON || cc.Query != "" {
		return printJSON(cc, st)
	}
	return printStatus(cc.Stdout, st)
}

func runWatch(cc *commandContext, args []string) error {
	opts, err := parseTaskFlags(cc, "watch", args)
	if err != nil {
		return err
	}
	c, err := newClient(cc)
	if err != nil {
		return err
	}
	return watch(cc, c, opts.TaskID, opts.Interval, opts.JSON)
}

// watch follows a task to its end. A failed task is returned as an error so
// the exit status reflects it.
func watch(cc *commandContext, c *client.Client, taskID string, interval time.Duration, asJSON bool) error {
	asJSON = asJSON || cc.Query != ""
	final, err := c.Observe(cc.Ctx, taskID, client.ObserveOptions{
		Interval: interval,
		OnChange: func(st model.JobStatus) {
			if asJSON || st.State.Terminal() {
				return
			}
			_ = writef(cc.Stderr, "%s %s %d%% %s\n", st.TaskID, st.State, derefProgress(st.Progress), st.ProgressLabel)
		},
	})
	if err != nil {
		return err
	}

	if asJSON {
		if err := printJSON(cc, final); err != nil {
			return err
		}
	} else if err := printStatus(cc.Stdout, final); err != nil {
		return err
	}
	_, err = client.Outcome(final)
	return err
}

func derefProgress(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

type scriptOptions struct {
	Path     string
	Interval time.Duration
	Progress bool
}

func parseScriptFlags(cc *commandContext, args []string) (scriptOptions, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)

	var opts scriptOptions
	fs.StringVar(&opts.Path, "script", "-", "JSON-lines file of {word, algorithm, corpus_id}; - reads stdin")
	fs.DurationVar(&opts.Interval, "interval", client.DefaultPollInterval, "Status request interval")
	fs.BoolVar(&opts.Progress, "progress", false, "Also print intermediate progress replies")
	if err := fs.Parse(args); err != nil {
		return scriptOptions{}, err
	}
	return opts, nil
}

// scriptLine accepts corpus ids as JSON strings or integers.
type scriptLine struct {
	Word      string `json:"word"`
	Algorithm string `json:"algorithm"`
	CorpusID  string `json:"corpus_id"`
}

func (l *scriptLine) UnmarshalJSON(b []byte) error {
	var raw struct {
		Word      string          `json:"word"`
		Algorithm string          `json:"algorithm"`
		CorpusID  json.RawMessage `json:"corpus_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	l.Word, l.Algorithm = raw.Word, raw.Algorithm
	if len(raw.CorpusID) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.CorpusID, &l.CorpusID); err == nil {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.CorpusID, &n); err != nil {
		return errors.New("corpus_id must be a string or integer")
	}
	l.CorpusID = n.String()
	return nil
}

// runScript submits each line over one push session and prints every final
// reply as a JSON line. Rejected or failed lines do not stop the script.
func runScript(cc *commandContext, args []string) error {
	opts, err := parseScriptFlags(cc, args)
	if err != nil {
		return err
	}

	in := cc.Stdin
	if opts.Path != "-" {
		f, openErr := os.Open(opts.Path)
		if openErr != nil {
			return fmt.Errorf("open script: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	c, err := newClient(cc)
	if err != nil {
		return err
	}
	sess, err := c.DialPush(cc.Ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	failed, total, err := executeScript(cc.Ctx, sess, in, cc.Stdout, opts)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs did not complete", failed, total)
	}
	return nil
}

func executeScript(ctx context.Context, sess *client.PushSession, in io.Reader, out io.Writer, opts scriptOptions) (failed, total int, err error) {
	sc := bufio.NewScanner(in)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		total++

		var line scriptLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			failed++
			if err := printJSONLine(out, map[string]any{"line": lineNo, "error": err.Error()}); err != nil {
				return failed, total, err
			}
			continue
		}

		final, err := runScriptLine(ctx, sess, line, out, opts)
		if err != nil {
			return failed, total, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if final.Status != service.PushCompleted {
			failed++
		}
		if err := printJSONLine(out, final); err != nil {
			return failed, total, err
		}
	}
	if err := sc.Err(); err != nil {
		return failed, total, fmt.Errorf("read script: %w", err)
	}
	return failed, total, nil
}

func runScriptLine(ctx context.Context, sess *client.PushSession, line scriptLine, out io.Writer, opts scriptOptions) (client.PushReply, error) {
	started, err := sess.Submit(ctx, model.JobParameters{
		Word:      line.Word,
		Algorithm: line.Algorithm,
		CorpusID:  line.CorpusID,
	})
	if err != nil {
		return client.PushReply{}, err
	}
	if started.Rejected() || started.TaskID == "" {
		return started, nil
	}

	var onReply func(client.PushReply)
	if opts.Progress {
		onReply = func(r client.PushReply) {
			if !r.Terminal() {
				_ = printJSONLine(out, r)
			}
		}
	}
	return sess.Watch(ctx, started.TaskID, opts.Interval, onReply)
}
