package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// printJSON writes v as indented JSON, filtered through the --query
// expression when one is set.
func printJSON(cc *commandContext, v any) error {
	out := v
	if q := strings.TrimSpace(cc.Query); q != "" {
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		if out, err = jmespath.Search(q, generic); err != nil {
			return fmt.Errorf("evaluate query %q: %w", q, err)
		}
	}
	enc := json.NewEncoder(cc.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printJSONLine writes v compactly on one line.
func printJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// toGeneric converts v to maps and slices so JMESPath can walk it by JSON names.
func toGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	return generic, nil
}

func printResults(w io.Writer, results []model.ResultEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "RANK\tWORD\tDISTANCE\n"); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	for i, r := range results {
		if err := writef(tw, "%d\t%s\t%d\n", i+1, r.Word, r.Distance); err != nil {
			return fmt.Errorf("write result %q: %w", r.Word, err)
		}
	}
	return tw.Flush()
}

func printStatus(w io.Writer, st model.JobStatus) error {
	line := fmt.Sprintf("%s\t%s", st.TaskID, st.State)
	if st.Progress != nil {
		line += fmt.Sprintf("\t%d%%", *st.Progress)
	}
	if st.ProgressLabel != "" {
		line += "\t" + st.ProgressLabel
	}
	if st.Error != "" {
		line += "\t" + string(st.Error)
		if st.ErrorMessage != "" {
			line += ": " + st.ErrorMessage
		}
	}
	if err := writef(w, "%s\n", line); err != nil {
		return err
	}
	if st.Result != nil {
		if err := writef(w, "execution time: %.3fs\n", st.Result.ExecutionTime); err != nil {
			return err
		}
		return printResults(w, st.Result.Results)
	}
	return nil
}

func printCorpora(w io.Writer, corpora []*model.CorpusSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writef(tw, "ID\tNAME\tCREATED\n"); err != nil {
		return fmt.Errorf("write corpora header: %w", err)
	}
	for _, c := range corpora {
		if err := writef(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.CreatedAt.Format("2006-01-02 15:04:05")); err != nil {
			return fmt.Errorf("write corpus %s: %w", c.ID, err)
		}
	}
	return tw.Flush()
}
