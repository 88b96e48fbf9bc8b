package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fdg312/run-coach/internal/blob"
	"github.com/fdg312/run-coach/internal/coach"
	"github.com/fdg312/run-coach/internal/export"
)

const chatHelp = "Commandes : /export pdf|csv, /quit"

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with the coach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.chatLoop(ctx, os.Stdin, cmd.OutOrStdout())
		},
	}
}

func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			turn, err := a.dialogue.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), turn.Text)
			return nil
		},
	}
}

// chatLoop reads lines from in; each coach reply is printed when it arrives, possibly out of order.
func (a *app) chatLoop(ctx context.Context, in io.Reader, out io.Writer) error {
	w := &lockedWriter{w: out}
	conv := a.dialogue.Conversation()
	var printers sync.WaitGroup

	fmt.Fprintln(w, chatHelp)
	scanner := bufio.NewScanner(in)
read:
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			break read
		case strings.HasPrefix(line, "/export"):
			a.exportCommand(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/export")), w)
			continue
		case strings.HasPrefix(line, "/"):
			fmt.Fprintln(w, chatHelp)
			continue
		}

		conv.SetInput(line)
		reply, ok := a.dialogue.SubmitInput(ctx)
		if !ok {
			a.log.Debug("empty input ignored")
			continue
		}
		printers.Add(1)
		go func() {
			defer printers.Done()
			if turn, ok := <-reply; ok {
				fmt.Fprintf(w, "coach> %s\n", turn.Text)
			}
		}()
	}
	if err := scanner.Err(); err != nil {
		a.log.WithError(err).Warn("read input")
	}

	a.dialogue.Wait()
	printers.Wait()
	return nil
}

// lockedWriter serializes writes from the reply printers and the input loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (a *app) exportCommand(ctx context.Context, arg string, out io.Writer) {
	format, err := export.ParseFormat(arg)
	if err != nil {
		fmt.Fprintln(out, "usage: /export pdf|csv")
		return
	}

	store, mode, err := blob.NewBlobStore(ctx, a.cfg.Blob, a.log)
	if err != nil {
		a.log.WithError(err).Error("export store unavailable")
		return
	}

	res, err := export.NewExporter(store).
		WithPresignTTL(a.cfg.Blob.S3.PresignTTLSeconds).
		Export(ctx, a.cfg.Coach.OwnerUserID, transcriptOf(a.dialogue.Conversation().Turns()), format)
	if err != nil {
		a.log.WithError(err).Error("export failed")
		return
	}

	a.log.WithFields(logrus.Fields{"key": res.Key, "mode": mode, "bytes": res.SizeBytes}).Info("transcript exported")
	location := res.URL
	if local, ok := store.(*blob.LocalStore); ok {
		location = local.Root() + "/" + res.Key
	}
	fmt.Fprintf(out, "export: %s\n", location)
}

func transcriptOf(turns []coach.ChatTurn) export.Transcript {
	t := export.Transcript{Title: "Conversation avec le coach"}
	for _, turn := range turns {
		author := "Coach"
		if turn.IsFromUser {
			author = "Moi"
		}
		t.Entries = append(t.Entries, export.Entry{Time: turn.CreatedAt, Author: author, Text: turn.Text})
	}
	return t
}
