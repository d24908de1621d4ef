package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/discourse/internal/server"
	"github.com/aidanlsb/discourse/internal/ui"
)

var (
	serveAddr       string
	serveCORS       []string
	serveAllowWrite bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API over HTTP",
	Long: `Starts an HTTP server exposing the graph's query compiler:

  GET  /health            liveness
  GET  /metrics           Prometheus metrics
  POST /api/query         run conditions or a saved query
  POST /api/compile       compile conditions without running them
  GET  /api/translators   list relation labels
  GET  /api/queries       list saved queries
  POST /api/blocks        compile triples into blocks (write needs --allow-write)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return handleError(ErrStoreFailed, err, "")
		}
		defer sess.Close()

		opts := []server.Option{
			server.WithLogger(logger),
			server.WithSavedQueries(sess.settings.Queries),
			server.WithPageSize(cfg.PageSize()),
		}
		if serveAllowWrite {
			opts = append(opts, server.WithAppender(sess.store))
		}
		if origins := splitNonEmpty(serveCORS); len(origins) > 0 {
			opts = append(opts, server.WithAllowedOrigins(origins...))
		}
		srv := server.New(sess.executor, sess.blocks, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !jsonOutput {
			fmt.Fprintln(os.Stderr, ui.Hint("serving "+resolvedGraphName+" on http://"+serveAddr))
		}
		return srv.ListenAndServe(ctx, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8765", "Address to listen on")
	serveCmd.Flags().StringSliceVar(&serveCORS, "cors", nil, "Allowed CORS origins (comma-separated)")
	serveCmd.Flags().BoolVar(&serveAllowWrite, "allow-write", false, "Allow POST /api/blocks to write to the graph")
	rootCmd.AddCommand(serveCmd)
}
