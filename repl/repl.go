// Package repl implements the Read-Eval-Print Loop for the SQC
// mission-scripting dialect.
//
// The REPL provides an interactive interface for users to enter SQC
// code, have it compiled and executed on the bytecode VM, and see the
// results immediately. It uses the Charm libraries (Bubbletea, Bubbles,
// and Lipgloss) to create a modern, user-friendly terminal interface
// with syntax highlighting and command history.
//
// Key features:
//   - Interactive command input and execution
//   - Command history tracking
//   - Styled output with different colors for results, parse errors and
//     runtime diagnostics
//   - Persistent namespaces across commands: variables assigned in one
//     input are visible to the next, since every evaluation runs a new
//     context on the same virtual machine
//
// The main entry point is the Start function, which initializes and runs
// the REPL with the given username.
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sqc-lang/sqcvm/builtins"
	"github.com/sqc-lang/sqcvm/compiler"
	"github.com/sqc-lang/sqcvm/lexer"
	"github.com/sqc-lang/sqcvm/parser"
	"github.com/sqc-lang/sqcvm/token"
	"github.com/sqc-lang/sqcvm/vm"
)

const (
	// Prompt is the default prompt for the REPL
	Prompt = ">> "

	// ContPrompt is the continuation prompt used in multiline input mode within the REPL.
	ContPrompt = ".. "
)

// Options contains configuration options for the REPL
type Options struct {
	NoColor bool // Disable syntax highlighting and colored output
	Debug   bool // Show the compiled instruction listing with each result
}

// Start initializes and runs the REPL with the given username and options.
// It creates a new bubbletea program with an initial model and runs it.
// The username is displayed in the welcome message of the REPL.
// If an error occurs while running the program, it is printed to the console.
func Start(username string, options Options) {
	p := tea.NewProgram(initialModel(username, options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running program:", err)
	}
}

// Styling
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	parseErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	diagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF8700"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	// Syntax highlighting styles
	keywordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF79C6")).
			Bold(true)

	identifierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	literalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	operatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	delimiterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#BD93F9"))

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))
)

// Custom messages for async evaluation
type evalResultMsg struct {
	output      string
	diagnostics []string
	listing     string
	isError     bool
	elapsed     time.Duration
}

// The model represents the state of the application
type model struct {
	textInput       textinput.Model
	history         []historyEntry
	machine         *vm.VM
	username        string
	evaluating      bool
	currentInput    string
	multilineBuffer string // Buffer for multiline input
	isMultiline     bool   // Flag to indicate if we're in multiline mode
	spinner         spinner.Model
	options         Options
}

// applyStyle applies a lipgloss style to a string, respecting the NoColor option
func (m model) applyStyle(style lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return style.Render(text)
}

// historyEntry represents a single entry in the REPL history
type historyEntry struct {
	input          string
	output         string
	diagnostics    []string
	listing        string
	isError        bool
	evaluationTime time.Duration
}

// initialModel creates a new model with default values
func initialModel(username string, options Options) model {
	ti := textinput.New()
	ti.Placeholder = "Enter SQC code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = promptStyle.Render(Prompt)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	machine := vm.New()
	// A registration conflict here is a bug in the builtins package, not
	// a user error; surface it and carry on with whatever registered.
	if err := builtins.Install(machine); err != nil {
		fmt.Println("builtin registration error:", err)
	}

	return model{
		textInput:       ti,
		history:         []historyEntry{},
		machine:         machine,
		username:        username,
		evaluating:      false,
		multilineBuffer: "",
		isMultiline:     false,
		spinner:         s,
		options:         options,
	}
}

// Init is the first function that will be called
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced checks if brackets, braces, and parentheses are balanced in the input
func isBalanced(input string) bool {
	var stack []rune

	for _, char := range input {
		switch char {
		case '(', '{', '[':
			stack = append(stack, char)
		case ')':
			if len(stack) == 0 || stack[len(stack)-1] != '(' {
				return false
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return len(stack) == 0
}

// evalCmd is a command that compiles and runs SQC code asynchronously on
// the shared machine. Exactly one evaluation runs at a time (the model
// refuses input while evaluating), so the single-threaded VM is safe.
func evalCmd(input string, machine *vm.VM, debug bool) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()

		l := lexer.New(input)
		p := parser.NewWithOperators(l, machine.Registry)
		program := p.ParseProgram()

		if len(p.Errors()) != 0 {
			return evalResultMsg{
				output:  formatParseErrors(p.Errors()),
				isError: true,
				elapsed: time.Since(start),
			}
		}

		comp := compiler.New(machine.Registry, "<repl>", input)
		set, err := comp.Compile(program)
		if err != nil {
			return evalResultMsg{
				output:  "Compilation error: " + err.Error(),
				isError: true,
				elapsed: time.Since(start),
			}
		}

		var listing string
		if debug {
			listing = set.Instructions.String()
		}

		seen := len(machine.Diag.Messages())
		ctx := machine.NewScript(set)
		machine.RunUntilIdle(vm.DefaultMaxTotalInstructions)
		machine.Retire()

		var diags []string
		for _, msg := range machine.Diag.Messages()[seen:] {
			diags = append(diags, msg.String())
		}

		output := ctx.Result.ToStringSQF()
		return evalResultMsg{
			output:      output,
			diagnostics: diags,
			listing:     listing,
			isError:     ctx.Failed,
			elapsed:     time.Since(start),
		}
	}
}

// Update handles all the updates to our model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		// Evaluation completed
		m.evaluating = false

		m.history = append(m.history, historyEntry{
			input:          m.currentInput,
			output:         msg.output,
			diagnostics:    msg.diagnostics,
			listing:        msg.listing,
			isError:        msg.isError,
			evaluationTime: msg.elapsed,
		})

		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		// If we're evaluating, ignore key presses except for Ctrl+C
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				// An empty line in multiline mode evaluates the buffer
				if m.isMultiline {
					if m.multilineBuffer == "" {
						m.isMultiline = false
						return m, nil
					}

					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.textInput.SetValue("")
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.machine, m.options.Debug)
				}
				return m, nil
			}

			// If we're in multiline mode, append the input to the buffer
			if m.isMultiline {
				m.multilineBuffer += "\n" + input
				m.textInput.SetValue("")

				if isBalanced(m.multilineBuffer) {
					m.evaluating = true
					m.currentInput = m.multilineBuffer
					m.isMultiline = false

					buffer := m.multilineBuffer
					m.multilineBuffer = ""

					return m, evalCmd(buffer, m.machine, m.options.Debug)
				}

				return m, nil
			}

			// Unbalanced brackets start multiline mode
			if !isBalanced(input) {
				m.isMultiline = true
				m.multilineBuffer = input
				m.textInput.SetValue("")
				return m, nil
			}

			m.evaluating = true
			m.currentInput = input
			m.textInput.SetValue("")

			return m, evalCmd(input, m.machine, m.options.Debug)
		}
	}

	// Only update the text input if we're not evaluating
	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}

	// Ensure the spinner keeps ticking while evaluating
	if m.evaluating {
		return m, m.spinner.Tick
	}

	return m, cmd
}

// View renders the current UI
func (m model) View() string {
	var s strings.Builder

	// Title
	s.WriteString(m.applyStyle(titleStyle, " SQC Virtual Machine REPL "))
	s.WriteString("\n")

	if m.username != "" {
		s.WriteString(fmt.Sprintf("\nHello %s! Feel free to type in mission scripts\n", m.username))
	}
	s.WriteString("\n")

	// History
	for _, entry := range m.history {
		lines := strings.Split(entry.input, "\n")
		for i, line := range lines {
			if i == 0 {
				s.WriteString(m.applyStyle(promptStyle, Prompt))
			} else {
				s.WriteString(m.applyStyle(promptStyle, ContPrompt))
			}
			s.WriteString(m.highlightCode(line))
			s.WriteString("\n")
		}

		if entry.listing != "" {
			s.WriteString(m.applyStyle(historyStyle, entry.listing))
		}
		for _, d := range entry.diagnostics {
			s.WriteString(m.applyStyle(diagStyle, d))
			s.WriteString("\n")
		}
		if entry.isError {
			s.WriteString(m.applyStyle(parseErrorStyle, entry.output))
		} else {
			s.WriteString(m.applyStyle(resultStyle, entry.output))
		}

		// Show evaluation time if it took more than 10 ms
		if entry.evaluationTime > 10*time.Millisecond {
			timeStr := fmt.Sprintf(" (%.2fs)", entry.evaluationTime.Seconds())
			s.WriteString(m.applyStyle(historyStyle, timeStr))
		}

		s.WriteString("\n\n")
	}

	// Current evaluation
	if m.evaluating {
		s.WriteString(m.applyStyle(promptStyle, Prompt))
		s.WriteString(m.highlightCode(m.currentInput))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" Evaluating...")
		s.WriteString("\n\n")
	}

	// Show multiline buffer if in multiline mode
	if m.isMultiline && !m.evaluating {
		s.WriteString(m.applyStyle(historyStyle, "Current multiline input:\n"))
		s.WriteString(m.highlightCode(m.multilineBuffer))
		s.WriteString("\n")
	}

	// Input
	if !m.evaluating {
		if m.isMultiline {
			m.textInput.Prompt = m.applyStyle(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.applyStyle(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	// Help text
	helpText := "\nPress Esc or Ctrl+C/D to exit"
	if m.isMultiline {
		helpText += " | Multiline mode: Enter empty line to evaluate or continue typing"
	} else {
		helpText += " | Multiline input supported for unbalanced brackets"
	}
	s.WriteString(m.applyStyle(historyStyle, helpText))

	return s.String()
}

// formatParseErrors formats parser errors into a string with improved readability
func formatParseErrors(errors []string) string {
	var s strings.Builder
	s.WriteString("Parser Errors:\n")

	for i, msg := range errors {
		s.WriteString(fmt.Sprintf("  %d. %s\n", i+1, msg))
	}

	s.WriteString("\nTips:\n")
	s.WriteString("  • Check for missing parentheses, braces, or semicolons\n")
	s.WriteString("  • Control structures need their full pipeline: if (c) then { } else { }\n")
	s.WriteString("  • Local variables start with an underscore or a private declaration\n")

	return s.String()
}

// highlightCode applies per-token syntax highlighting to SQC code. The
// lexer is reused as the tokenizer, so the coloring always agrees with
// what the parser would see; spacing is reproduced from the tokens'
// column positions rather than reformatted.
func (m model) highlightCode(src string) string {
	if m.options.NoColor {
		return src
	}

	l := lexer.New(src)
	var s strings.Builder
	line, col := 1, 0
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		for line < tok.Line {
			s.WriteString("\n")
			line++
			col = 0
		}
		for col < tok.Column-1 {
			s.WriteString(" ")
			col++
		}
		text := tokenText(tok)
		s.WriteString(styleFor(tok).Render(text))
		col += len([]rune(text))
	}
	return s.String()
}

// tokenText recovers the source spelling of a token (string literals
// lose their quotes during lexing).
func tokenText(tok token.Token) string {
	if tok.Type == token.STRING {
		return `"` + strings.ReplaceAll(tok.Literal, `"`, `""`) + `"`
	}
	return tok.Literal
}

func styleFor(tok token.Token) lipgloss.Style {
	switch tok.Type {
	case token.PRIVATE, token.IF, token.THEN, token.ELSE, token.FOR, token.FROM,
		token.TO, token.STEP, token.DO, token.WHILE, token.FOREACH, token.IN,
		token.SWITCH, token.CASE, token.DEFAULT, token.TRY, token.CATCH,
		token.THROW, token.RETURN, token.FUNCTION, token.TRUE, token.FALSE, token.NIL:
		return keywordStyle
	case token.IDENT:
		return identifierStyle
	case token.NUMBER:
		return literalStyle
	case token.STRING:
		return stringStyle
	case token.ASSIGN, token.PLUS, token.MINUS, token.BANG, token.ASTERISK,
		token.SLASH, token.PERCENT, token.LT, token.GT, token.LE, token.GE,
		token.EQ, token.NOT_EQ, token.EQ_EXACT, token.NOT_EQ_EXCL,
		token.AND, token.OR:
		return operatorStyle
	case token.COMMA, token.COLON, token.SEMICOLON, token.LPAREN, token.RPAREN,
		token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET:
		return delimiterStyle
	default:
		return identifierStyle
	}
}
