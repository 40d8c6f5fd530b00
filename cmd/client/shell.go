package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chat-client/internal/client"
)

var errQuit = errors.New("quit")

// shell is a line-oriented front end: slash commands run intents, any
// other line is sent to the active room.
type shell struct {
	c   *client.Client
	out io.Writer
}

func newShell(c *client.Client, out io.Writer) *shell {
	return &shell{c: c, out: out}
}

func (s *shell) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := s.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(s.out, "! %v\n", err)
			}
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		return s.c.Chat.SendMessage(line)
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)
	chat := s.c.Chat

	switch cmd {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprint(s.out, helpText)
		return nil
	case "login":
		if len(args) != 2 {
			return usage("/login <email> <password>")
		}
		return s.c.Login(ctx, args[0], args[1])
	case "signup":
		if len(args) != 3 {
			return usage("/signup <name> <email> <password>")
		}
		return s.c.Signup(ctx, args[0], args[1], args[2])
	case "forgot":
		if len(args) != 1 {
			return usage("/forgot <email>")
		}
		return s.c.RequestPasswordReset(ctx, args[0])
	case "reset":
		if len(args) != 2 {
			return usage("/reset <token> <new-password>")
		}
		return s.c.ResetPassword(ctx, args[0], args[1])
	case "logout":
		s.c.Logout()
		return nil
	case "rooms":
		renderRooms(s.out, s.c.Snapshot())
		return chat.RefreshRooms()
	case "show":
		snap := s.c.Snapshot()
		renderTranscript(s.out, snap, s.c.DaySeparators(snap.Messages), s.c.Location())
		return nil
	case "join":
		if len(args) != 1 {
			return usage("/join <room-id>")
		}
		return chat.JoinRoom(args[0])
	case "create":
		return chat.CreateRoom(rest)
	case "private":
		if len(args) < 2 {
			return usage("/private <user-id> <room name>")
		}
		return chat.CreatePrivateRoom(strings.TrimSpace(strings.TrimPrefix(rest, args[0])), args[0])
	case "rename":
		if len(args) < 2 {
			return usage("/rename <room-id> <name>")
		}
		return chat.RenameRoom(args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0])))
	case "delete":
		if len(args) != 1 {
			return usage("/delete <room-id>")
		}
		return chat.DeleteRoom(args[0])
	case "edit":
		if len(args) < 2 {
			return usage("/edit <message-id> <text>")
		}
		return chat.EditMessage(args[0], strings.TrimSpace(strings.TrimPrefix(rest, args[0])))
	case "rm":
		if len(args) != 1 {
			return usage("/rm <message-id>")
		}
		return chat.DeleteMessage(args[0])
	case "users":
		renderUsers(s.out, s.c.Snapshot())
		return chat.RefreshUsers()
	case "find":
		if len(args) != 1 {
			return usage("/find <email>")
		}
		return chat.FindUserByEmail(args[0])
	case "dm":
		if len(args) != 1 {
			return usage("/dm <user-id>")
		}
		return chat.CreateDirectRoom(args[0])
	case "name":
		return chat.UpdateName(ctx, rest)
	case "avatar":
		if len(args) != 1 {
			return usage("/avatar <file>")
		}
		return withFile(args[0], func(name string, r io.Reader) error {
			_, err := chat.UploadAvatar(ctx, name, r)
			return err
		})
	case "bg":
		if len(args) != 2 {
			return usage("/bg <room-id> <file>")
		}
		return withFile(args[1], func(name string, r io.Reader) error {
			_, err := chat.UploadRoomBackground(ctx, args[0], name, r)
			return err
		})
	case "image":
		if len(args) != 1 {
			return usage("/image <file>")
		}
		return withFile(args[0], func(name string, r io.Reader) error {
			return chat.SendImage(ctx, name, r)
		})
	default:
		return fmt.Errorf("unknown command /%s, try /help", cmd)
	}
}

func usage(text string) error {
	return fmt.Errorf("usage: %s", text)
}

func withFile(path string, fn func(name string, r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(filepath.Base(path), f)
}

const helpText = `Commands:
  /login <email> <password>        /signup <name> <email> <password>
  /forgot <email>                  /reset <token> <new-password>
  /logout                          /quit
  /rooms                           /join <room-id>
  /create <name>                   /private <user-id> <name>
  /rename <room-id> <name>         /delete <room-id>
  /show                            /edit <message-id> <text>
  /rm <message-id>                 /image <file>
  /users                           /find <email>
  /dm <user-id>                    /name <new name>
  /avatar <file>                   /bg <room-id> <file>
Any other line is sent to the active room.
`
