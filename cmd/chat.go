package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/azor-ai/azor/internal/audit"
	"github.com/azor-ai/azor/internal/logger"
	"github.com/azor-ai/azor/internal/session"
)

// runChat starts the interactive chat (REPL) mode.
func runChat() error {
	cfg := initConfig()
	log := logger.New(cfg.LogLevel, true)

	backend, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("azor %s (provider: %s, model: %s)\n", appVersion, backend.Name(), backend.Model())

	storeDir := cfg.SessionDir
	if storeDir == "" {
		storeDir, err = session.DefaultStoreDir()
		if err != nil {
			return fmt.Errorf("session store dir: %w", err)
		}
	}
	store, err := session.NewFileStore(storeDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	auditPath := cfg.AuditLog
	if auditPath == "" {
		auditPath, err = audit.DefaultPath()
		if err != nil {
			return fmt.Errorf("audit log path: %w", err)
		}
	}
	auditLog, err := audit.Open(auditPath)
	if err != nil {
		// Auditing is best effort; the chat still works without it.
		log.Warn().Err(err).Msg("audit log unavailable")
		auditLog = nil
	}
	defer auditLog.Close()

	assistant := session.Assistant{
		Name:         cfg.AssistantName,
		SystemPrompt: cfg.SystemPrompt,
	}
	manager := session.NewManager(backend, store, auditLog, assistant, log, session.Options{
		ContextWindow:  cfg.ContextWindow,
		ThinkingBudget: cfg.ThinkingBudget,
	})

	init, err := manager.InitFromID(sessionIDFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if init.LoadErr != nil {
		fmt.Fprintf(os.Stderr, "Could not resume session: %v\n", init.LoadErr)
		fmt.Printf("Started new session '%s'. ID: %s\n", init.Session.Title, init.Session.ID)
	} else if sessionIDFlag != "" {
		fmt.Printf("Loaded session '%s'. ID: %s\n", init.Session.Title, init.Session.ID)
		if !init.Session.IsEmpty() {
			printHistorySummary(init.Session)
		}
	} else {
		fmt.Printf("Started new session '%s'. ID: %s\n", init.Session.Title, init.Session.ID)
	}
	printHelp(init.Session.ID)

	// Final save on SIGINT/SIGTERM as well as normal exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		teardown(manager)
		os.Exit(0)
	}()

	repl(manager)
	teardown(manager)
	return nil
}

func teardown(manager *session.Manager) {
	if sess, err := manager.Current(); err == nil && !sess.IsEmpty() {
		fmt.Printf("\nSaving session '%s'. ID: %s\n", sess.Title, sess.ID)
	}
	if err := manager.Teardown(); err != nil {
		fmt.Fprintf(os.Stderr, "Final save failed: %v\n", err)
	}
}

func repl(manager *session.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if handleCommand(manager, line) {
				return
			}
			continue
		}

		sendMessage(manager, line)
	}
}

func sendMessage(manager *session.Manager, text string) {
	sess, err := manager.Current()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	reply, err := sess.SendMessage(chatContext(), text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Printf("\n%s: %s\n", sess.AssistantName(), reply)
}
