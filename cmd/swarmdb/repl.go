package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/drpcorg/swarmdb"
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/ergochat/readline"
)

// REPL per se.
type REPL struct {
	Node *swarmdb.Node
	rl   *readline.Instance
	objs map[string]*rdt.Syncable
	lock sync.Mutex
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("new"),
	readline.PcItem("set"),
	readline.PcItem("cat"),
	readline.PcItem("log"),

	readline.PcItem("query"),
	readline.PcItem("subs"),
	readline.PcItem("off"),

	readline.PcItem("session"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open() (err error) {
	repl.objs = make(map[string]*rdt.Syncable)
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".swarmdb_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	repl.lock.Lock()
	for _, obj := range repl.objs {
		obj.Close()
	}
	repl.objs = nil
	repl.lock.Unlock()
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

func (repl *REPL) REPL() (out string, err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return "", nil
	}
	cmd, arg := line, ""
	if ws := strings.IndexAny(line, " \t\r\n"); ws > 0 {
		cmd = line[:ws]
		arg = strings.TrimSpace(line[ws:])
	}
	switch cmd {
	case "help":
		out = usage
	// ----- objects -----
	case "new":
		out, err = repl.CommandNew(arg)
	case "set":
		out, err = repl.CommandSet(arg)
	case "cat":
		out, err = repl.CommandCat(arg)
	case "log":
		out, err = repl.CommandLog(arg)
	// ----- queries -----
	case "query", "subscribe", "mutate":
		out, err = repl.CommandQuery(arg)
	case "subs":
		out, err = repl.CommandSubs(arg)
	case "off":
		out, err = repl.CommandOff(arg)
	// ----- replica -----
	case "session":
		out, err = repl.CommandSession(arg)
	case "exit", "quit":
		err = io.EOF
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return
}

const usage = `new <type> <json>      create an object
set <id> <json>        replace the state of a doc
cat <id>               the published state
log <id>               the op log of an object
query <graphql>        run a query, subscription or mutation
subs                   list the live queries
off <fingerprint>      stop a live query
session                allocate a session id
exit`
