package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/azor-ai/azor/internal/provider"
	"github.com/azor-ai/azor/internal/session"
)

// chatContext is the request context for backend calls from the REPL.
// Cancellation policy, if any, belongs to the backend layer.
func chatContext() context.Context {
	return context.Background()
}

// handleCommand dispatches a slash command. It returns true when the REPL
// should exit.
func handleCommand(manager *session.Manager, line string) bool {
	parts := strings.SplitN(line, " ", 2)
	command := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	switch command {
	case "/exit", "/quit":
		fmt.Println("\nEnding chat, running final save...")
		return true

	case "/help":
		if sess, err := manager.Current(); err == nil {
			printHelp(sess.ID)
		}

	case "/switch":
		handleSwitch(manager, args)

	case "/session":
		if args == "" {
			fmt.Fprintln(os.Stderr, "Error: /session requires a subcommand (list, display, pop, clear, new, remove, rename).")
		} else {
			handleSessionSubcommand(manager, args)
		}

	case "/tokens":
		handleTokens(manager)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %s. Use /help.\n", command)
	}
	return false
}

func handleSwitch(manager *session.Manager, id string) {
	if id == "" {
		fmt.Fprintln(os.Stderr, "Error: usage: /switch <SESSION-ID>")
		return
	}
	if sess, err := manager.Current(); err == nil && sess.ID == id {
		fmt.Println("Already in that session.")
		return
	}

	res := manager.SwitchTo(id)
	if res.SaveAttempted {
		fmt.Printf("\nSaving current session: %s...\n", res.PreviousID)
	}
	if res.LoadErr != nil {
		fmt.Fprintf(os.Stderr, "Cannot load session %s: %v\n", id, res.LoadErr)
		return
	}

	fmt.Printf("\n--- Switched to session: %s ---\n", res.Session.ID)
	printHelp(res.Session.ID)
	if res.HasHistory {
		printHistorySummary(res.Session)
	}
}

func handleSessionSubcommand(manager *session.Manager, line string) {
	parts := strings.SplitN(line, " ", 2)
	subcommand := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	sess, err := manager.Current()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	switch subcommand {
	case "list":
		listSessions(manager)

	case "display":
		printFullHistory(sess)

	case "pop":
		ok, err := sess.PopLastExchange()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if ok {
			fmt.Printf("Removed the last exchange (YOU and %s).\n", sess.AssistantName())
			printHistorySummary(sess)
		} else if err == nil {
			fmt.Fprintln(os.Stderr, "Error: history is empty or incomplete (needs at least one full exchange).")
		}

	case "clear":
		if err := sess.ClearHistory(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Println("Current session history cleared.")

	case "new":
		res, err := manager.CreateNew(true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		if res.SaveAttempted {
			fmt.Printf("\nSaving current session %s before starting a new one...\n", res.PreviousID)
			if res.SaveErr != nil {
				fmt.Fprintf(os.Stderr, "Save failed: %v\n", res.SaveErr)
			}
		}
		fmt.Printf("\n--- Started new session: %s ---\n", res.Session.ID)
		printHelp(res.Session.ID)

	case "remove":
		res, err := manager.RemoveCurrentAndCreateNew()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		if res.RemoveErr != nil {
			fmt.Fprintf(os.Stderr, "Could not remove session %s: %v\n", res.RemovedID, res.RemoveErr)
		} else {
			fmt.Printf("Removed session: %s\n", res.RemovedID)
		}
		fmt.Printf("\n--- Started new session: %s ---\n", res.Session.ID)

	case "rename":
		if args == "" {
			fmt.Fprintln(os.Stderr, "Error: usage: /session rename <new title>")
			return
		}
		if err := manager.RenameCurrent(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		fmt.Printf("Session renamed to '%s'.\n", args)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown /session subcommand: %s. Use /help.\n", subcommand)
	}
}

func handleTokens(manager *session.Manager) {
	sess, err := manager.Current()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	total, remaining, max := sess.TokenInfo(chatContext())
	fmt.Printf("Tokens used: %d / %d (remaining: %d)\n", total, max, remaining)
}

func listSessions(manager *session.Manager) {
	infos, err := manager.ListAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Println("No saved sessions.")
		return
	}
	for _, info := range infos {
		title := info.Title
		if title == "" {
			title = session.DefaultTitle
		}
		fmt.Printf("%s  %-30s  %s  %d msgs  %s\n",
			info.ID, title, info.Model, info.MessageCount,
			info.LastActivity.Format("2006-01-02 15:04"))
	}
}

// printHistorySummary shows the last few exchanges of a session.
func printHistorySummary(sess *session.Session) {
	history := sess.History()
	const maxShown = 6
	if len(history) > maxShown {
		fmt.Printf("(... %d earlier entries)\n", len(history)-maxShown)
		history = history[len(history)-maxShown:]
	}
	for _, e := range history {
		printEntry(sess.AssistantName(), e.Role, e.Text(), 200)
	}
}

func printFullHistory(sess *session.Session) {
	fmt.Printf("--- Session %s: '%s' ---\n", sess.ID, sess.Title)
	for _, e := range sess.History() {
		printEntry(sess.AssistantName(), e.Role, e.Text(), 0)
	}
}

func printEntry(assistantName string, role provider.Role, text string, limit int) {
	speaker := "YOU"
	if role != provider.RoleUser {
		speaker = strings.ToUpper(assistantName)
	}
	if limit > 0 && len(text) > limit {
		text = text[:limit] + "..."
	}
	fmt.Printf("%s: %s\n", speaker, text)
}

func printHelp(sessionID string) {
	fmt.Printf(`
Commands:
  /help                      show this help
  /switch <SESSION-ID>       save current session and switch to another
  /session list              list saved sessions
  /session display           show the full current history
  /session pop               remove the last exchange
  /session clear             clear the current history
  /session new               save current session and start a new one
  /session remove            delete current session and start a new one
  /session rename <title>    rename the current session
  /tokens                    show token usage
  /exit, /quit               save and exit

Current session: %s
`, sessionID)
}
