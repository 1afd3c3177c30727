package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/target/fuzzysearch/internal/domain/model"
)

type uploadOptions struct {
	Name string
	File string
	JSON bool
}

func parseUploadFlags(cc *commandContext, args []string) (uploadOptions, error) {
	fs := flag.NewFlagSet("corpus-upload", flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)

	var opts uploadOptions
	fs.StringVar(&opts.Name, "name", "", "Corpus name (defaults to the file name)")
	fs.StringVar(&opts.File, "file", "", "Text file to upload; - reads stdin (required)")
	fs.BoolVar(&opts.JSON, "json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return uploadOptions{}, err
	}

	if opts.File == "" {
		return uploadOptions{}, errors.New("--file is required")
	}
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Name == "" && opts.File != "-" {
		opts.Name = strings.TrimSuffix(filepath.Base(opts.File), filepath.Ext(opts.File))
	}
	if opts.Name == "" {
		return uploadOptions{}, errors.New("--name is required when reading stdin")
	}
	return opts, nil
}

func runCorpusUpload(cc *commandContext, args []string) error {
	opts, err := parseUploadFlags(cc, args)
	if err != nil {
		return err
	}

	var text []byte
	if opts.File == "-" {
		text, err = io.ReadAll(cc.Stdin)
	} else {
		text, err = os.ReadFile(opts.File)
	}
	if err != nil {
		return fmt.Errorf("read corpus text: %w", err)
	}

	c, err := newClient(cc)
	if err != nil {
		return err
	}
	summary, err := c.CreateCorpus(cc.Ctx, opts.Name, string(text))
	if err != nil {
		return err
	}
	if opts.JSON || cc.Query != "" {
		return printJSON(cc, summary)
	}
	return printCorpora(cc.Stdout, []*model.CorpusSummary{summary})
}

func runCorpusList(cc *commandContext, args []string) error {
	fs := flag.NewFlagSet("corpus-list", flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)
	limit := fs.Int("limit", 50, "Maximum number of corpora")
	offset := fs.Int("offset", 0, "Number of corpora to skip")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := newClient(cc)
	if err != nil {
		return err
	}
	corpora, err := c.ListCorpora(cc.Ctx, *limit, *offset)
	if err != nil {
		return err
	}
	if *asJSON || cc.Query != "" {
		return printJSON(cc, corpora)
	}
	return printCorpora(cc.Stdout, corpora)
}
