package domain

import (
	"slices"
	"strings"
)

// Invocation is one fully resolved call of the external tool.
type Invocation struct {
	// Stage is the pipeline stage this call implements.
	Stage StageName

	// Program is the executable to run.
	Program string

	// Args are the arguments after the program name.
	Args []string

	// Env holds overrides layered on top of the inherited environment.
	Env map[string]string
}

// EnvList returns the overrides as sorted KEY=VALUE pairs.
func (i Invocation) EnvList() []string {
	keys := make([]string, 0, len(i.Env))
	for k := range i.Env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+i.Env[k])
	}
	return out
}

// CommandLine returns the program and arguments joined by spaces.
func (i Invocation) CommandLine() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Program)
	for _, a := range i.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// String renders the invocation as a shell line, environment first.
func (i Invocation) String() string {
	env := i.EnvList()
	if len(env) == 0 {
		return i.CommandLine()
	}
	return strings.Join(env, " ") + " " + i.CommandLine()
}

func quoteArg(a string) string {
	if a == "" {
		return "''"
	}
	if !strings.ContainsAny(a, " \t\n'\"\\$`") {
		return a
	}
	return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
}
