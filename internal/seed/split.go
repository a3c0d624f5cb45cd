// Package seed applies SQL bootstrap scripts that mix schema statements with
// seed rows, inserting each table's seed rows only while that table is empty.
package seed

import (
	"regexp"
	"strings"
)

var (
	insertLine  = regexp.MustCompile(`(?i)^\s*INSERT\s+INTO`)
	insertTable = regexp.MustCompile("(?i)INSERT\\s+INTO\\s+[`\"\\[]?([A-Za-z0-9_]+)")
)

// Group is the seed statements targeting one table, in script order.
type Group struct {
	Table      string
	Statements []string
}

// Plan is a script split into its schema part, per-table seed groups (in
// first-seen order) and the leftover statements that target no table.
type Plan struct {
	Schema string
	Groups []Group
	Other  []string
}

// Statements counts the seed statements in the plan.
func (p Plan) Statements() int {
	n := len(p.Other)
	for _, g := range p.Groups {
		n += len(g.Statements)
	}
	return n
}

// Split partitions script at its first line starting with INSERT INTO.
// Everything before that line is schema; the rest is split into statements
// and grouped by the table they insert into. Table names are grouped
// case-insensitively, keeping the first spelling seen.
func Split(script string) Plan {
	lines := strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n")
	first := -1
	for i, line := range lines {
		if insertLine.MatchString(line) {
			first = i
			break
		}
	}
	if first < 0 {
		return Plan{Schema: strings.TrimSpace(script)}
	}

	plan := Plan{Schema: strings.TrimSpace(strings.Join(lines[:first], "\n"))}
	index := make(map[string]int)
	for _, stmt := range splitStatements(strings.Join(lines[first:], "\n")) {
		m := insertTable.FindStringSubmatch(stmt)
		if m == nil {
			plan.Other = append(plan.Other, stmt)
			continue
		}
		key := strings.ToLower(m[1])
		i, ok := index[key]
		if !ok {
			i = len(plan.Groups)
			index[key] = i
			plan.Groups = append(plan.Groups, Group{Table: m[1]})
		}
		plan.Groups[i].Statements = append(plan.Groups[i].Statements, stmt)
	}
	return plan
}

// splitStatements cuts sql at every semicolon that ends a line (optionally
// followed by blanks) or the input. Semicolons inside single-quoted literals
// never split. Comments are dropped: quotes inside them do not count and a
// semicolon inside them ends nothing. Each statement keeps its terminating
// semicolon.
func splitStatements(sql string) []string {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		stmt := strings.TrimSpace(cur.String())
		cur.Reset()
		if stmt == "" || stmt == ";" {
			return
		}
		if !strings.HasSuffix(stmt, ";") {
			stmt += ";"
		}
		out = append(out, stmt)
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inQuote:
			if c == '\'' {
				inQuote = false
			}
		case c == '\'':
			inQuote = true
		case c == '-' && strings.HasPrefix(sql[i:], "--"):
			nl := strings.IndexByte(sql[i:], '\n')
			if nl < 0 {
				i = len(sql)
			} else {
				i += nl - 1
			}
			continue
		case c == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
			cur.WriteByte(' ')
			continue
		case c == ';' && endsLine(stripComments(sql[i+1:])):
			cur.WriteByte(c)
			flush()
			continue
		}
		cur.WriteByte(c)
	}
	flush()
	return out
}

// stripComments removes a leading run of blanks and comments from the rest
// of the current line, so "INSERT ...; -- note" still ends a statement.
func stripComments(rest string) string {
	for {
		trimmed := strings.TrimLeft(rest, " \t\r")
		switch {
		case strings.HasPrefix(trimmed, "--"):
			if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
				return trimmed[nl:]
			}
			return ""
		case strings.HasPrefix(trimmed, "/*"):
			end := strings.Index(trimmed[2:], "*/")
			if end < 0 {
				return ""
			}
			rest = trimmed[end+4:]
		default:
			return trimmed
		}
	}
}

func endsLine(rest string) bool {
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}
