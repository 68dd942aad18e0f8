package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/Registrar/server/internal/db"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/notify"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/service"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/store/sqlite"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/validate"
)

// console is one command's view of the store.
type console struct {
	out        io.Writer
	svc        *service.RecordService
	queue      store.NotificationStore
	dispatcher *notify.Dispatcher
	controller *service.Controller
	close      func()
}

func openConsole(ctx context.Context, cmd *cobra.Command) (*console, error) {
	conn, err := db.Open(ctx, db.Config{Path: dbPath})
	if err != nil {
		return nil, err
	}
	writer := db.NewWorker(conn)

	logger := log.New(cmd.ErrOrStderr(), "registrarctl ", 0)
	queue := sqlite.NewNotificationStore(conn, writer)

	svc := service.NewRecordService(service.Deps{
		Records:   sqlite.NewRecordStore(conn, writer),
		Validator: validate.Default(),
		Queue:     queue,
		Trigger:   notify.AbsenceTrigger{},
		Logger:    logger,
		Options:   service.Options{MaxAttempts: maxAttempts},
	})
	dispatcher := notify.NewDispatcher(queue, notify.NewSimulated(notify.SimulatedConfig{}, logger),
		notify.DispatcherConfig{}, logger, nil)

	out := cmd.OutOrStdout()
	confirm := &promptConfirmer{in: bufio.NewReader(cmd.InOrStdin()), out: out, yes: assumeYes}

	return &console{
		out:        out,
		svc:        svc,
		queue:      queue,
		dispatcher: dispatcher,
		controller: service.NewController(svc, dispatcher, &consoleSurface{out: out}, confirm),
		close: func() {
			writer.Close()
			_ = conn.Close()
		},
	}, nil
}

// ── Surface ──────────────────────────────────────────────────────────────────

type consoleSurface struct {
	out io.Writer
}

func (c *consoleSurface) OnLoaded(e types.Entity) {
	printEntity(c.out, e)
}

func (c *consoleSurface) OnRejected(vs []types.Violation) {
	fmt.Fprintln(c.out, "Rejected:")
	for _, v := range vs {
		fmt.Fprintf(c.out, "  %s: %s\n", v.Field, v.Message)
	}
}

func (c *consoleSurface) OnCommitted(e types.Entity) {
	fmt.Fprintf(c.out, "Saved %s.\n", e.ID)
}

func (c *consoleSurface) OnAborted(reason string) {
	fmt.Fprintf(c.out, "Aborted: %s\n", reason)
}

func (c *consoleSurface) OnNotificationSummary(sent, failed int) {
	fmt.Fprintf(c.out, "Notifications: %d sent, %d failed\n", sent, failed)
}

// promptConfirmer asks on the console.  Anything but y/yes is a no.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
}

func (p *promptConfirmer) Confirm(prompt string) bool {
	if p.yes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printEntity(w io.Writer, e types.Entity) {
	fmt.Fprintf(w, "%s\n", e.ID)
	for _, f := range e.Fields {
		fmt.Fprintf(w, "  %-16s %v\n", f.Name, f.Value)
	}
}
