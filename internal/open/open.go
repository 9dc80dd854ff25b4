package open

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Zuo-Peng/session-analyzer/internal/index"
)

// OpenSession opens the indexed source file of sessionID in $EDITOR.
func OpenSession(db *index.DB, sessionID string) error {
	session, err := db.GetSessionByID(sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	filePath := session.FilePath
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("file not found: %s", filePath)
	}

	cmd := editorCommand(os.Getenv("EDITOR"), filePath)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// editorCommand builds the command for editor, which may carry its own
// arguments (e.g. "code -w"). Session files are one JSON line, so less
// runs with -S.
func editorCommand(editor, filePath string) *exec.Cmd {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{"less"}
	}
	name, args := fields[0], fields[1:]

	switch {
	case strings.Contains(name, "code"):
		args = append(args, "--reuse-window")
	case strings.HasSuffix(name, "less"):
		args = append(args, "-S")
	}
	return exec.Command(name, append(args, filePath)...)
}
