package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/nickyhof/tablekv/client"
	"github.com/nickyhof/tablekv/db"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

const maxHistory = 1000

// CLI holds the CLI state
type CLI struct {
	client      *client.Client
	out         io.Writer
	color       bool
	table       string // current table context
	limit       int
	history     []string
	historyFile string
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "tablekv-cli: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	addr := flag.String("addr", "127.0.0.1:4848", "Server address")
	user := flag.String("user", "", "User name")
	password := flag.String("password", "", "Password or token (defaults to $TABLEKV_PASSWORD)")
	file := flag.String("file", "", "File of commands to execute (non-interactive)")
	limit := flag.Int("limit", 20, "Maximum number of keys shown per query")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("TABLEKV_PASSWORD")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	c, err := client.Dial(ctx, *addr)
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Auth(*user, *password); err != nil {
		return err
	}

	cli := &CLI{
		client:      c,
		out:         colorable.NewColorableStdout(),
		color:       isatty.IsTerminal(os.Stdout.Fd()),
		limit:       *limit,
		historyFile: getHistoryPath(),
	}

	// One-shot command from the remaining arguments.
	if args := flag.Args(); len(args) > 0 {
		return cli.runOne(strings.Join(args, " "))
	}
	if *file != "" {
		return cli.importFile(*file)
	}

	cli.loadHistory()
	cli.printBanner(*addr)
	cli.run(os.Stdin)
	cli.saveHistory()
	return nil
}

func (cli *CLI) paint(color, s string) string {
	if !cli.color {
		return s
	}
	return color + s + ResetColor
}

func (cli *CLI) printf(color, format string, args ...any) {
	fmt.Fprint(cli.out, cli.paint(color, fmt.Sprintf(format, args...)))
}

func (cli *CLI) printBanner(addr string) {
	fmt.Fprintln(cli.out)
	cli.printf(BoldColor+PromptColor, "tablekv v%s connected to %s\n", Version, addr)
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(cli.out, cli.getPrompt())

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			cli.printf(SuccessColor, "\nGoodbye!\n")
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, ".") {
			if !cli.handleCommand(input) {
				return
			}
			continue
		}

		cli.addToHistory(input)
		result, err := cli.execute(input)
		if err != nil {
			cli.printf(ErrorColor, "✗ Error: %v\n", err)
			continue
		}
		result.Display(cli.out)
	}
}

// runOne executes a single command and reports failure through the error.
func (cli *CLI) runOne(input string) error {
	result, err := cli.execute(input)
	if err != nil {
		return err
	}
	result.Display(cli.out)
	return nil
}

func (cli *CLI) getPrompt() string {
	tablePart := ""
	if cli.table != "" {
		tablePart = fmt.Sprintf(" (%s)", cli.table)
	}
	return cli.paint(PromptColor, fmt.Sprintf("tablekv%s>", tablePart)) + " "
}

var errUsage = errors.New("usage")

// execute runs one data command:
//
//	get <table> <key>
//	set <table> <key> <value>
//	replace <table> <key> <version> <value>
//	delete <table> <key>
//	query <table> <predicates>
//
// The table is omitted when a table context is set with .use.
func (cli *CLI) execute(input string) (db.Result, error) {
	verb, rest := nextField(input)
	verb = strings.ToLower(verb)

	table := cli.table
	if table == "" {
		table, rest = nextField(rest)
	}

	startTime := time.Now()
	elapsed := func() float64 { return time.Since(startTime).Seconds() }

	switch verb {
	case "get":
		key, extra := nextField(rest)
		if key == "" || extra != "" {
			return nil, fmt.Errorf("%w: get [table] <key>", errUsage)
		}
		rec, err := cli.client.Get(table, key)
		if err != nil {
			return nil, err
		}
		return db.ValueResult{Table: table, Key: key, Value: rec.Value, Version: rec.Version, ExecutionTimeSec: elapsed()}, nil

	case "set":
		key, value := nextField(rest)
		if key == "" || value == "" {
			return nil, fmt.Errorf("%w: set [table] <key> <value>", errUsage)
		}
		if err := cli.client.Set(table, key, value, 0); err != nil {
			return nil, err
		}
		return db.CommitResult{Table: table, Key: key, RecordsWritten: 1, ExecutionTimeSec: elapsed()}, nil

	case "replace":
		key, rest := nextField(rest)
		versionText, value := nextField(rest)
		version, err := strconv.ParseUint(versionText, 10, 64)
		if key == "" || value == "" || err != nil || version == 0 {
			return nil, fmt.Errorf("%w: replace [table] <key> <version> <value>", errUsage)
		}
		if err := cli.client.Set(table, key, value, version); err != nil {
			return nil, err
		}
		return db.CommitResult{Table: table, Key: key, RecordsWritten: 1, ExecutionTimeSec: elapsed()}, nil

	case "delete":
		key, extra := nextField(rest)
		if key == "" || extra != "" {
			return nil, fmt.Errorf("%w: delete [table] <key>", errUsage)
		}
		if err := cli.client.Delete(table, key); err != nil {
			return nil, err
		}
		return db.CommitResult{Table: table, Key: key, RecordsDeleted: 1, ExecutionTimeSec: elapsed()}, nil

	case "query":
		if rest == "" {
			return nil, fmt.Errorf("%w: query [table] <predicates>", errUsage)
		}
		keys, total, err := cli.client.Query(table, rest, cli.limit)
		if err != nil {
			return nil, err
		}
		return db.QueryResult{Table: table, Keys: keys, Total: total, RecordsRead: total, ExecutionTimeSec: elapsed()}, nil

	default:
		return nil, fmt.Errorf("unknown command %q (type .help for commands)", verb)
	}
}

// nextField splits off the first whitespace-separated word of s.
func nextField(s string) (string, string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

// handleCommand runs a dot command. It returns false when the CLI should
// exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.printf(SuccessColor, "Goodbye!\n")
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".use":
		if len(parts) > 1 {
			cli.table = parts[1]
			cli.printf(SuccessColor, "✓ Using table: %s\n", cli.table)
		} else {
			cli.table = ""
			cli.printf(SuccessColor, "✓ Table context cleared\n")
		}

	case ".limit":
		n := 0
		if len(parts) > 1 {
			n, _ = strconv.Atoi(parts[1])
		}
		if n <= 0 {
			cli.printf(ErrorColor, "✗ Usage: .limit <n>\n")
			break
		}
		cli.limit = n
		cli.printf(SuccessColor, "✓ Showing up to %d keys per query\n", n)

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "tablekv version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			if err := cli.importFile(parts[1]); err != nil {
				cli.printf(ErrorColor, "✗ Error: %v\n", err)
			}
		} else {
			cli.printf(ErrorColor, "✗ Usage: .import <file>\n")
		}

	default:
		cli.printf(ErrorColor, "✗ Unknown command: %s (type .help for commands)\n", parts[0])
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Fprintln(cli.out)
	cli.printf(BoldColor+PromptColor, "Special Commands:\n")
	fmt.Fprintln(cli.out, "  .help, .h        Show this help message")
	fmt.Fprintln(cli.out, "  .quit, .exit     Exit the CLI")
	fmt.Fprintln(cli.out, "  .use [table]     Set or clear the current table context")
	fmt.Fprintln(cli.out, "  .limit <n>       Maximum number of keys shown per query")
	fmt.Fprintln(cli.out, "  .import <file>   Execute commands from a file")
	fmt.Fprintln(cli.out, "  .history         Show command history")
	fmt.Fprintln(cli.out, "  .clear           Clear the screen")
	fmt.Fprintln(cli.out, "  .version         Show version info")
	fmt.Fprintln(cli.out)
	cli.printf(BoldColor+PromptColor, "Data Commands:\n")
	fmt.Fprintln(cli.out, "  get [table] <key>")
	fmt.Fprintln(cli.out, "  set [table] <key> <column value, ...>")
	fmt.Fprintln(cli.out, "  replace [table] <key> <version> <column value, ...>")
	fmt.Fprintln(cli.out, "  delete [table] <key>")
	fmt.Fprintln(cli.out, "  query [table] <column op value,...>")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tablekv_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > maxHistory {
		start = len(cli.history) - maxHistory
	}
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile executes the commands in a file, one per line. Blank lines and
// lines starting with # are skipped.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount := 0
	errorCount := 0
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		result, err := cli.execute(line)
		if err != nil {
			cli.printf(ErrorColor, "[%d] ✗ %s\n", i+1, truncate(line, 50))
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++

		switch r := result.(type) {
		case db.QueryResult:
			cli.printf(SuccessColor, "[%d] ✓ %s (%d matches)\n", i+1, truncate(line, 50), r.Total)
		default:
			cli.printf(SuccessColor, "[%d] ✓ %s\n", i+1, truncate(line, 50))
		}
	}

	cli.printf(SuccessColor, "\n✓ Import complete: %d succeeded, %d failed\n", successCount, errorCount)
	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
