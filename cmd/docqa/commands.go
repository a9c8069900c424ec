package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/docqa/internal/app"
	"github.com/mike-a-ellis/docqa/internal/docstore"
	"github.com/mike-a-ellis/docqa/internal/extract"
	"github.com/mike-a-ellis/docqa/internal/rag"
)

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with /mcp, /health and /metrics",
		Long: `Applies database migrations, connects to Qdrant and Postgres and serves:

  POST /api/ingest          multipart upload (file, optional title)
  POST /api/query           {"queryText": "...", "documentId": "..."}
  GET  /api/documents[/:id] document records
  GET  /health, /metrics    health and metrics
  /mcp                      MCP over streamable HTTP`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := docstore.ApplyMigrations(ctx, c.cfg.Database.URL); err != nil {
				return err
			}
			return c.withApp(ctx, func(a *app.App) error {
				srv, err := a.APIServer()
				if err != nil {
					return err
				}
				return srv.Run(ctx, c.cfg.Server.Addr())
			})
		},
	}
}

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				c.logger.Info("Starting MCP server (stdio mode)")
				return a.MCPServer().Run(cmd.Context())
			})
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := docstore.ApplyMigrations(cmd.Context(), c.cfg.Database.URL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func (c *cli) ingestCmd() *cobra.Command {
	var title, contentType string
	cmd := &cobra.Command{
		Use:   "ingest FILE",
		Short: "Ingest a PDF or plain text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(path))
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Ingestor.Ingest(cmd.Context(), rag.IngestRequest{
					Upload: &extract.Upload{
						Filename:    filepath.Base(path),
						ContentType: contentType,
						Body:        f,
					},
					Title: title,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Document processed successfully")
				fmt.Fprintf(out, "  Document ID: %s\n", res.DocumentID)
				fmt.Fprintf(out, "  Title: %s\n", res.Title)
				fmt.Fprintf(out, "  Chunks: %d\n", res.ChunkCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "declared media type (defaults to one derived from the extension)")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var documentID string
	cmd := &cobra.Command{
		Use:   "ask QUERY",
		Short: "Answer a question from ingested documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				res, err := a.Answerer.Answer(cmd.Context(), rag.Query{Text: args[0], DocumentID: documentID})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, res.Answer)
				if len(res.Sources) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Sources:")
					for i, src := range res.Sources {
						fmt.Fprintf(out, "  [%d] %s (%s)\n", i+1, src.Title, src.Filename)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&documentID, "document", "", "restrict the search to one document id")
	return cmd
}

func (c *cli) documentsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				docs, err := a.Documents.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "DOCUMENT ID\tSTATUS\tCHUNKS\tTITLE\tCREATED")
				for _, d := range docs {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", d.DocumentID, d.Status, d.ChunkCount, d.Title, d.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", docstore.DefaultListLimit, "maximum number of documents")
	return cmd
}

func (c *cli) purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge DOCUMENT_ID",
		Short: "Delete a document's chunks and record",
		Long:  "Removes every stored chunk of the document and then its record. Use it to clean up documents left incomplete by a failed ingestion.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Purger.Purge(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %s\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) importGitHubCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-github",
		Short: "Ingest every markdown file under a GitHub repository path",
		Long: `Fetches markdown files from GitHub and ingests each one as plain text.

Environment variables:
  GITHUB_OWNER   repository owner (required)
  GITHUB_REPO    repository name (required)
  GITHUB_PATH    directory to walk (default: repository root)
  GITHUB_REF     branch, tag or SHA (default: default branch)
  GITHUB_TOKEN   token for higher rate limits (optional)
  GITHUB_API_URL GitHub Enterprise Server URL (optional)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				result, err := a.ImportGitHub(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Import complete!")
				fmt.Fprintf(out, "  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
				fmt.Fprintf(out, "  Chunks: %d\n", result.TotalChunks)
				fmt.Fprintf(out, "  Duration: %s\n", result.Duration.Round(time.Second))
				fmt.Fprintf(out, "  Commit: %s\n", result.CommitSHA)
				if len(result.FailedDocs) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Failed documents:")
					for _, failed := range result.FailedDocs {
						fmt.Fprintf(out, "  - %s: %s\n", failed.Path, failed.Reason)
					}
				}
				return nil
			})
		},
	}
}
