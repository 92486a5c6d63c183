package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/devrag/devrag-go/internal/store"
)

// sourcesShown caps how many sources are listed under each answer.
const sourcesShown = 3

// InteractiveSession runs a read-eval-print loop over in/out until the user
// quits, the input is exhausted, or the context is cancelled (SIGINT/SIGTERM
// exit the loop cleanly). Besides free-form questions the loop understands:
//
//	context      show the sources behind the previous answer
//	stats        show knowledge-base statistics
//	quit|exit|q  leave the session
//
// A failed question is reported and the loop continues; only input errors
// end the session with an error.
func (e *Engine) InteractiveSession(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, "devrag interactive session. Ask a question, or type 'context', 'stats', or 'quit'.")

	var lastResp *Response
	scanner := bufio.NewScanner(in)
	// Questions can be long; the default 64KB token limit is raised to 1MB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		default:
		}

		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("engine: session input: %w", err)
			}
			fmt.Fprintln(out, "\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case "context":
			if lastResp == nil || len(lastResp.Sources) == 0 {
				fmt.Fprintln(out, "No context available yet. Ask a question first.")
				continue
			}
			printContextSources(out, lastResp)
		case "stats":
			e.printStats(ctx, out)
		default:
			resp, err := e.ask(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			lastResp = resp
			printResponse(out, resp)
		}
	}
}

// ask runs one conversation-aware query, loading recent history from the
// store and persisting the completed exchange. History failures degrade to a
// stateless query.
func (e *Engine) ask(ctx context.Context, question string) (*Response, error) {
	var history []store.Exchange
	if e.history != nil {
		prior, err := e.history.Recent(ctx, e.collection, conversationWindow)
		if err != nil {
			e.log.Warn("engine: failed to load conversation history", slog.String("error", err.Error()))
		} else {
			history = prior
		}
	}

	resp, err := e.QueryWithConversation(ctx, question, history)
	if err != nil {
		return nil, err
	}

	if e.history != nil && len(resp.Sources) > 0 {
		if err := e.history.Append(ctx, e.collection, question, resp.Answer); err != nil {
			e.log.Warn("engine: failed to persist exchange", slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

// printStats writes knowledge-base statistics, reporting failures inline.
func (e *Engine) printStats(ctx context.Context, out io.Writer) {
	stats, err := e.Stats(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: could not read index stats: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Collection: %s\n", stats.Collection)
	fmt.Fprintf(out, "Vectors:    %d\n", stats.TotalVectors)
	fmt.Fprintf(out, "Dimension:  %d\n", stats.Dimension)
	fmt.Fprintf(out, "Status:     %s\n", stats.Status)
}

// printContextSources writes the full source list behind the previous
// answer, each with a one-line content preview.
func printContextSources(out io.Writer, resp *Response) {
	fmt.Fprintln(out, "Sources for the previous answer:")
	for i, src := range resp.Sources {
		fmt.Fprintf(out, "  %d. %s/%s (relevance %.3f)\n",
			i+1,
			src.Metadata.GetString("repo_name"),
			src.Metadata.GetString("filename"),
			src.Score,
		)
		fmt.Fprintf(out, "     %s\n", sourcePreview(src.Content))
	}
}

// sourcePreview flattens and truncates chunk content for terminal display.
func sourcePreview(content string) string {
	flat := strings.NewReplacer("\n", " ", "\t", " ").Replace(content)
	if len(flat) > conversationAnswerLimit {
		return flat[:conversationAnswerLimit] + "..."
	}
	return flat
}

// printResponse writes the answer, token usage, and a short source list.
func printResponse(out io.Writer, resp *Response) {
	fmt.Fprintln(out, resp.Answer)

	if resp.TokensUsed != nil {
		fmt.Fprintf(out, "\n(%d tokens)\n", *resp.TokensUsed)
	}
	if len(resp.Sources) == 0 {
		return
	}

	fmt.Fprintln(out, "\nSources:")
	for i, src := range resp.Sources {
		if i == sourcesShown {
			break
		}
		fmt.Fprintf(out, "  %d. %s/%s (relevance %.3f)\n",
			i+1,
			src.Metadata.GetString("repo_name"),
			src.Metadata.GetString("filename"),
			src.Score,
		)
	}
}
