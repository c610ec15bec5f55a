// CodePad CLI - Command line client for CodePad
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/codepad-protocol/codepad/clients/go/codepad"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CODEPAD_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	client := codepad.NewClient(baseURL)
	client.UserID = os.Getenv("CODEPAD_USER")
	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "create":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codepad create <title> [language]")
			os.Exit(1)
		}
		language := ""
		if len(os.Args) > 3 {
			language = os.Args[3]
		}
		doc, err := client.CreateDocument(os.Args[2], language)
		exitOnError(err)
		fmt.Printf("Created: %s  %s\n", doc.ID, doc.Title)

	case "list":
		resp, err := client.ListDocuments(20, 0)
		exitOnError(err)
		for _, doc := range resp.Documents {
			fmt.Printf("  %s  %s (%s)\n", doc.ID, doc.Title, doc.Language)
		}

	case "get":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codepad get <document_id>")
			os.Exit(1)
		}
		doc, err := client.GetDocument(os.Args[2])
		exitOnError(err)
		fmt.Println(doc.Content)

	case "adduser":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codepad adduser <username> [email]")
			os.Exit(1)
		}
		email := ""
		if len(os.Args) > 3 {
			email = os.Args[3]
		}
		user, err := client.CreateUser(os.Args[2], email)
		exitOnError(err)
		fmt.Printf("Created user: %s  %s\n", user.ID, user.Username)

	case "search":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codepad search <query>")
			os.Exit(1)
		}
		users, err := client.SearchUsers(os.Args[2], 10)
		exitOnError(err)
		for _, u := range users {
			fmt.Printf("  %s  %s\n", u.ID, u.Username)
		}

	case "share":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: codepad share <document_id> <user_id> [view|edit]")
			os.Exit(1)
		}
		permission := "view"
		if len(os.Args) > 4 {
			permission = os.Args[4]
		}
		resp, err := client.AddCollaborator(os.Args[2], os.Args[3], permission)
		exitOnError(err)
		if !resp.Success {
			fmt.Fprintln(os.Stderr, "Error:", resp.Error)
			os.Exit(1)
		}
		fmt.Println("Collaborator added")

	case "perm":
		if len(os.Args) < 5 {
			fmt.Fprintln(os.Stderr, "Usage: codepad perm <document_id> <collaborator_id> <view|edit>")
			os.Exit(1)
		}
		resp, err := client.UpdatePermission(os.Args[2], os.Args[3], os.Args[4])
		exitOnError(err)
		if !resp.Success {
			fmt.Fprintln(os.Stderr, "Error:", resp.Error)
			os.Exit(1)
		}
		fmt.Println("Permission updated")

	case "edit":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: codepad edit <document_id>")
			os.Exit(1)
		}
		edit(client, os.Args[2])

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// edit joins a document room and appends each stdin line to the shared
// buffer, printing remote activity as it happens.
func edit(client *codepad.Client, documentID string) {
	home, _ := os.UserHomeDir()
	drafts, err := codepad.OpenDraftStore(filepath.Join(home, ".codepad-drafts.db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning: draft store unavailable:", err)
	} else {
		defer drafts.Close()
	}

	editor := codepad.NewEditor("")
	presence := codepad.NewTracker()
	presence.OnUpdate(func() {
		fmt.Printf("* %d other user(s) in the document\n", presence.Count())
	})

	session := codepad.NewEditorSession(client.WSURL(documentID), documentID, editor, presence, drafts)
	session.OnStateChange = func(state int32) {
		switch state {
		case codepad.StateConnected:
			fmt.Println("* connected")
		case codepad.StateDisconnected:
			fmt.Println("* disconnected, retrying...")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	go session.Run(ctx)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text() + "\n"
		editor.Apply(codepad.Change{
			From:     editor.Len(),
			Inserted: line,
			Origin:   codepad.OriginInput,
		})
	}
}

func usage() {
	fmt.Println(`CodePad CLI - Collaborative text editing

Usage: codepad <command> [options]

Commands:
  create <title> [lang]               Create a document
  list                                List documents
  get <document_id>                   Print a document's content
  edit <document_id>                  Join a document and append stdin lines
  adduser <username> [email]          Register a user
  search <query>                      Search the user directory
  share <doc_id> <user_id> [perm]     Add a collaborator (view|edit)
  perm <doc_id> <collab_id> <perm>    Change a collaborator's permission
  health                              Check server health

Environment:
  CODEPAD_URL    Server URL (default: http://localhost:8080)
  CODEPAD_USER   User id sent with document creation`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
