package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/exa-search-tool/internal/progress"
	"github.com/kitbuilder587/exa-search-tool/internal/search/exa"
	"github.com/kitbuilder587/exa-search-tool/internal/tool"
)

type searcher interface {
	SearchWeb(ctx context.Context, query string, sink progress.Sink) (string, error)
}

func searchRun(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	t := tool.NewExa(exa.Config{
		APIKey:  a.cfg.Exa.APIKey,
		BaseURL: a.cfg.Exa.BaseURL,
		Timeout: a.cfg.Exa.Timeout,
	}, a.logger)

	return runSearch(cmd.Context(), t, args[0], cmd.OutOrStdout())
}

// runSearch writes one JSON line per progress event, then the result.
func runSearch(ctx context.Context, s searcher, query string, w io.Writer) error {
	enc := json.NewEncoder(w)

	out, err := s.SearchWeb(ctx, query, func(_ context.Context, ev progress.Event) error {
		return enc.Encode(ev.Message())
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, out)
	return err
}
