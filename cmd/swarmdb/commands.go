package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/drpcorg/swarmdb/gql"
	"github.com/drpcorg/swarmdb/rdt"
	"github.com/drpcorg/swarmdb/rdx"
	"github.com/pkg/errors"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var (
	ErrBadArgs   = errors.New("bad arguments")
	ErrNoSuchSub = errors.New("no such subscription")
)

func split(arg string) (head, tail string) {
	head, tail, _ = strings.Cut(arg, " ")
	return head, strings.TrimSpace(tail)
}

func (repl *REPL) object(id string) (*rdt.Syncable, error) {
	uuid, err := rdx.ParseUUID(id)
	if err != nil {
		return nil, err
	}
	repl.lock.Lock()
	defer repl.lock.Unlock()
	if obj, ok := repl.objs[uuid.String()]; ok {
		return obj, nil
	}
	r, err := repl.Node.Load(uuid)
	if err != nil {
		return nil, err
	}
	obj := rdt.NewSyncable(r, nil)
	repl.objs[uuid.String()] = obj
	return obj, nil
}

func (repl *REPL) CommandNew(arg string) (string, error) {
	typ, state := split(arg)
	if typ == "" {
		return "", ErrBadArgs
	}
	if state != "" && !json.Valid([]byte(state)) {
		return "", errors.Wrap(ErrBadArgs, "not a JSON state")
	}
	r, err := repl.Node.Create(typ, state)
	if err != nil {
		return "", err
	}
	repl.lock.Lock()
	repl.objs[r.ID().String()] = rdt.NewSyncable(r, nil)
	repl.lock.Unlock()
	return r.ID().String(), nil
}

func (repl *REPL) CommandSet(arg string) (string, error) {
	id, state := split(arg)
	if !json.Valid([]byte(state)) {
		return "", errors.Wrap(ErrBadArgs, "not a JSON state")
	}
	obj, err := repl.object(id)
	if err != nil {
		return "", err
	}
	if err = obj.Offer("set", state); err != nil {
		return "", err
	}
	return obj.Version().String(), nil
}

func (repl *REPL) CommandCat(arg string) (string, error) {
	uuid, err := rdx.ParseUUID(arg)
	if err != nil {
		return "", err
	}
	state, ok := repl.Node.Loopback.State(uuid.String())
	if !ok {
		return "", errors.Wrapf(ErrBadArgs, "nothing published for %s", uuid)
	}
	return string(state), nil
}

func (repl *REPL) CommandLog(arg string) (string, error) {
	uuid, err := rdx.ParseUUID(arg)
	if err != nil {
		return "", err
	}
	ops, err := repl.Node.Replica.Log(uuid)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(ops))
	for _, op := range ops {
		lines = append(lines, op.String())
	}
	return strings.Join(lines, "\n"), nil
}

// CommandQuery takes the query text; variables may follow it as
// a JSON object after a '|'
func (repl *REPL) CommandQuery(arg string) (string, error) {
	text, vars, _ := strings.Cut(arg, "|")
	doc, perr := parser.ParseQuery(&ast.Source{Name: "repl", Input: text})
	if perr != nil {
		return "", perr
	}
	args := map[string]any{}
	if vars = strings.TrimSpace(vars); vars != "" {
		if err := json.Unmarshal([]byte(vars), &args); err != nil {
			return "", errors.Wrap(err, "variables")
		}
	}
	req := gql.Request{Query: doc, Args: args}
	res, err := repl.Node.Execute(context.Background(), req, repl.print)
	if err != nil {
		return "", err
	}
	if !res.OK {
		return "already live", nil
	}
	return strconv.FormatUint(gql.Fingerprint(req, repl.print), 16), nil
}

func (repl *REPL) print(resp gql.Response) {
	if resp.Err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "error: %s\n", resp.Err.Error())
		return
	}
	data, err := json.MarshalIndent(resp.Data, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stdout, "error: %s\n", err.Error())
		return
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s\n", data)
}

func (repl *REPL) CommandSubs(arg string) (string, error) {
	lines := []string{}
	for _, sub := range repl.Node.Subs() {
		lines = append(lines, fmt.Sprintf("%x\t%s\t%s",
			sub.Fingerprint(), sub.Kind(), sub.Frame()))
	}
	return strings.Join(lines, "\n"), nil
}

func (repl *REPL) CommandOff(arg string) (string, error) {
	fp, err := strconv.ParseUint(arg, 16, 64)
	if err != nil {
		return "", errors.Wrap(ErrBadArgs, "fingerprint")
	}
	for _, sub := range repl.Node.Subs() {
		if sub.Is(fp) {
			return strconv.FormatBool(sub.Off()), nil
		}
	}
	return "", ErrNoSuchSub
}

func (repl *REPL) CommandSession(arg string) (string, error) {
	origin, err := repl.Node.Replica.NextSession()
	if err != nil {
		return "", err
	}
	return origin.String(), nil
}
