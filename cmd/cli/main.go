package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tesseradb/tessera"
	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/db"
	"github.com/tesseradb/tessera/ps"
	"github.com/tesseradb/tessera/sql"
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

// CLI holds the REPL state
type CLI struct {
	instance    *tessera.Instance
	engine      *db.Engine
	identity    core.Identity
	remote      ps.RemoteConfig
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", "", "Base directory for the database (empty for in-memory)")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	userName := flag.String("name", "Tessera", "Author name for snapshot commits")
	userEmail := flag.String("email", "cli@tessera.local", "Author email for snapshot commits")
	flag.Parse()

	printBanner()

	var instance *tessera.Instance
	var err error

	if *baseDir == "" {
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		instance, err = tessera.OpenMemory()
	} else {
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, *baseDir, ResetColor)
		instance, err = tessera.OpenFile(*baseDir)
	}
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	cli := &CLI{
		instance: instance,
		engine:   instance.Engine(),
		identity: core.Identity{
			Name:  *userName,
			Email: *userEmail,
		},
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
		remote: ps.RemoteConfig{
			AccessKey: os.Getenv("TESSERA_ACCESS_KEY"),
			SecretKey: os.Getenv("TESSERA_SECRET_KEY"),
			Region:    os.Getenv("TESSERA_REGION"),
			Endpoint:  os.Getenv("TESSERA_ENDPOINT"),
		},
	}

	cli.loadHistory()

	// Execute SQL file if provided
	if *sqlFile != "" {
		err := cli.importFile(*sqlFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("Tessera v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Git-backed SQL Database Engine      ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		prompt := cli.getPrompt(multiLineBuffer.Len() > 0)
		fmt.Print(prompt)

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Special commands only apply outside multi-line mode
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if cli.handleCommand(strings.TrimSpace(input)) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		text := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(text) == "" {
			continue
		}

		cli.addToHistory(text + ";")

		result, err := cli.engine.Execute(text)
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			result.Display()
		}
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%ssql>%s ", PromptColor, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".schema":
		if len(parts) > 1 {
			cli.showSchema(parts[1])
		} else {
			for _, name := range cli.instance.DB.List() {
				cli.showSchema(name)
			}
		}

	case ".indexes":
		if len(parts) > 1 {
			cli.showIndexes(parts[1])
		} else {
			for _, name := range cli.instance.DB.List() {
				cli.showIndexes(name)
			}
		}

	case ".save":
		message := "manual snapshot"
		if len(parts) > 1 {
			message = strings.Join(parts[1:], " ")
		}
		commit, err := cli.instance.Save(cli.identity, message)
		if err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Saved commit %s%s\n", SuccessColor, commit.ID, ResetColor)
		}

	case ".load":
		if len(parts) > 1 {
			if err := cli.instance.LoadAt(parts[1]); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Loaded state at %s%s\n", SuccessColor, parts[1], ResetColor)
			}
		} else if err := cli.instance.Load(); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Loaded latest saved state%s\n", SuccessColor, ResetColor)
		}

	case ".log":
		cli.showLog()

	case ".export":
		if len(parts) > 1 {
			snap := cli.instance.Snapshot()
			if err := ps.Export(snap, parts[1], &cli.remote); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Exported to %s%s\n", SuccessColor, parts[1], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .export <url>%s\n", ErrorColor, ResetColor)
		}

	case ".import":
		if len(parts) > 1 {
			snap, err := ps.Import(parts[1], &cli.remote)
			if err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
				return true
			}
			if err := cli.instance.Restore(snap); err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			} else {
				fmt.Printf("%s✓ Imported from %s%s\n", SuccessColor, parts[1], ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <url>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("Tessera version %s\n", Version)

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h          Show this help message")
	fmt.Println("  .quit, .exit       Exit the CLI")
	fmt.Println("  .tables            List all tables")
	fmt.Println("  .schema [table]    Show table schemas")
	fmt.Println("  .indexes [table]   Show indexed columns")
	fmt.Println("  .save [message]    Commit the current state")
	fmt.Println("  .load [commit]     Restore a saved state (latest by default)")
	fmt.Println("  .log               Show the commit history")
	fmt.Println("  .export <url>      Export a snapshot (s3://, https://, file://)")
	fmt.Println("  .import <url>      Import a snapshot")
	fmt.Println("  .history           Show command history")
	fmt.Println("  .clear             Clear the screen")
	fmt.Println("  .version           Show version info")
	fmt.Println()
	fmt.Printf("%s%sSQL Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  CREATE TABLE <table> (<column> <type> [PRIMARY KEY|UNIQUE|NOT NULL], ...);")
	fmt.Println("  DROP TABLE [IF EXISTS] <table>;")
	fmt.Println("  INSERT INTO <table> [(<cols>)] VALUES (<vals>), ...;")
	fmt.Println("  SELECT <cols> FROM <table> [JOIN ...] [WHERE ...] [ORDER BY ...] [LIMIT n] [OFFSET n];")
	fmt.Println("  UPDATE <table> SET <col>=<expr>, ... [WHERE ...];")
	fmt.Println("  DELETE FROM <table> [WHERE ...];")
	fmt.Println()
	fmt.Printf("%s%sTypes:%s INTEGER, REAL, TEXT, BOOLEAN\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%sJoins:%s INNER JOIN, LEFT JOIN, RIGHT JOIN, CROSS JOIN\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
}

func (cli *CLI) showTables() {
	names := cli.instance.DB.List()
	if len(names) == 0 {
		fmt.Println("No tables")
		return
	}
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func (cli *CLI) showSchema(name string) {
	table, err := cli.instance.DB.Get(name)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	renderer := db.NewTable(os.Stdout)
	renderer.Header([]string{"column", "type", "constraints"})
	for _, col := range table.Schema.Columns {
		var constraints []string
		if col.PrimaryKey {
			constraints = append(constraints, "PRIMARY KEY")
		}
		if col.Unique {
			constraints = append(constraints, "UNIQUE")
		}
		if col.NotNull {
			constraints = append(constraints, "NOT NULL")
		}
		renderer.Row([]string{col.Name, col.Type.String(), strings.Join(constraints, " ")})
	}
	fmt.Printf("%s%s%s\n", BoldColor, table.Schema.Table, ResetColor)
	renderer.Render()
}

func (cli *CLI) showIndexes(name string) {
	table, err := cli.instance.DB.Get(name)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	columns := table.IndexedColumns()
	sort.Strings(columns)
	if len(columns) == 0 {
		fmt.Printf("%s: no indexes\n", table.Schema.Table)
		return
	}
	fmt.Printf("%s%s%s\n", BoldColor, table.Schema.Table, ResetColor)
	for _, col := range columns {
		fmt.Printf("  %s\n", col)
	}
}

func (cli *CLI) showLog() {
	commits, err := cli.instance.History()
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	if len(commits) == 0 {
		fmt.Println("No commits")
		return
	}
	for _, commit := range commits {
		fmt.Printf("  %s\n", commit)
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tessera_history")
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

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile parses and executes SQL statements from a file, reporting
// each statement's outcome and continuing past failures.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements, err := sql.ParseAll(string(data))
	if err != nil {
		return err
	}

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		result, err := cli.engine.ExecuteStatement(stmt)
		if err != nil {
			fmt.Printf("%s[%d] ✗ error: %v%s\n", ErrorColor, i+1, err, ResetColor)
			errorCount++
			continue
		}
		successCount++
		switch r := result.(type) {
		case db.QueryResult:
			fmt.Printf("%s[%d] ✓ %d rows%s\n", SuccessColor, i+1, len(r.Rows), ResetColor)
		case db.ExecResult:
			fmt.Printf("%s[%d] ✓ %d rows affected%s\n", SuccessColor, i+1, r.RowsAffected, ResetColor)
		default:
			fmt.Printf("%s[%d] ✓%s\n", SuccessColor, i+1, ResetColor)
		}
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}
