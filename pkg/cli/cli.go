package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"
)

type IndentState struct {
	baseUnit uint8
}

func NewIndentState() *IndentState {
	return &IndentState{baseUnit: 4}
}

func (is *IndentState) AtLevel(level int) string {
	return strings.Repeat(" ", int(is.baseUnit*uint8(level)))
}

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	changed    map[string]bool
	args       []string
	flagGroups []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		changed:    make(map[string]bool),
	}
}

func (f *FlagSet) Args() []string { return f.args }

// Changed reports whether the named flag appeared on the command line.
func (f *FlagSet) Changed(name string) bool { return f.changed[name] }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		if entries[i].Enabled != nil {
			f.Bool(entries[i].Enabled, entries[i].Prefix+entries[i].Name, "", *entries[i].Enabled, entries[i].Usage)
		}
		if entries[i].Disabled != nil {
			f.Bool(entries[i].Disabled, entries[i].Prefix+"no-"+entries[i].Name, "", *entries[i].Disabled, "Disable '"+entries[i].Name+"'")
		}
	}
	f.flagGroups = append(f.flagGroups, FlagGroup{
		Name:                 name,
		Description:          description,
		Flags:                entries,
		GroupType:            groupType,
		AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand != "" {
		if _, ok := f.shorthands[shorthand]; ok {
			panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
		}
		f.shorthands[shorthand] = flag
	}
}

func (f *FlagSet) set(flag *Flag, value string) error {
	if err := flag.Value.Set(value); err != nil {
		return err
	}
	f.changed[flag.Name] = true
	return nil
}

// Parse accepts -name, -name=value, --name, --name=value and -x / -xvalue shorthands.
// A lone "-" is a positional argument (conventionally stdin/stdout).
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			break
		}

		dashes := 1
		if strings.HasPrefix(arg, "--") {
			dashes = 2
		}
		name, value, hasValue := strings.Cut(arg[dashes:], "=")
		if name == "" {
			return fmt.Errorf("empty flag name")
		}

		flag, ok := f.flags[name]
		if !ok {
			if dashes == 2 {
				return fmt.Errorf("unknown flag: --%s", name)
			}
			if err := f.parseShortFlag(arg, arguments, &i); err != nil {
				return err
			}
			continue
		}

		switch {
		case hasValue:
			if err := f.set(flag, value); err != nil {
				return err
			}
		case isBoolFlag(flag):
			if err := f.set(flag, ""); err != nil {
				return err
			}
		default:
			if i+1 >= len(arguments) {
				return fmt.Errorf("flag needs an argument: %s%s", strings.Repeat("-", dashes), name)
			}
			i++
			if err := f.set(flag, arguments[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlagSet) parseShortFlag(arg string, arguments []string, i *int) error {
	shorthand := arg[1:2]
	flag, ok := f.shorthands[shorthand]
	if !ok {
		return fmt.Errorf("unknown flag: %s", arg)
	}
	if isBoolFlag(flag) {
		if len(arg) > 2 {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		return f.set(flag, "")
	}
	value := arg[2:]
	if value == "" {
		if *i+1 >= len(arguments) {
			return fmt.Errorf("flag needs an argument: -%s", shorthand)
		}
		*i++
		value = arguments[*i]
	}
	return f.set(flag, value)
}

func isBoolFlag(flag *Flag) bool {
	_, ok := flag.Value.(*boolValue)
	return ok
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information.")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.generateUsagePage(a.Stderr)
		return err
	}
	if help {
		a.generateHelpPage(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// Usage writes the short usage page, used by actions that reject their arguments.
func (a *App) Usage() { a.generateUsagePage(a.Stderr) }

func (a *App) generateUsagePage(w io.Writer) {
	var sb strings.Builder
	indent := NewIndentState()
	termWidth := getTerminalWidth()

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	optionFlags := a.getOptionFlags()
	if len(optionFlags) > 0 {
		maxFlagWidth, maxUsageWidth := 0, 0
		for _, flag := range optionFlags {
			maxFlagWidth = max(maxFlagWidth, len(a.formatFlagString(flag)))
			maxUsageWidth = max(maxUsageWidth, len(flag.Usage))
		}
		fmt.Fprintf(&sb, "\n%sOptions\n", indent.AtLevel(1))
		for _, flag := range optionFlags {
			a.formatFlagLine(&sb, flag, indent, termWidth, maxFlagWidth, maxUsageWidth)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) generateHelpPage(w io.Writer) {
	var sb strings.Builder
	indent := NewIndentState()
	termWidth := getTerminalWidth()
	globalMaxWidth := a.calculateGlobalMaxWidth()

	globalMaxUsageWidth := 0
	optionFlags := a.getOptionFlags()
	for _, flag := range optionFlags {
		globalMaxUsageWidth = max(globalMaxUsageWidth, len(flag.Usage))
	}
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Flags {
			globalMaxUsageWidth = max(globalMaxUsageWidth, len(entry.Usage))
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%sCopyright (c) %d: %s\n", indent.AtLevel(1), time.Now().Year(), strings.Join(a.Authors, ", ")+" and contributors")
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent.AtLevel(1), a.Repository)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(&sb, "\n%sSynopsis\n", indent.AtLevel(1))
		fmt.Fprintf(&sb, "%s%s %s\n", indent.AtLevel(2), a.Name, a.Synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n", indent.AtLevel(1))
		for _, line := range wrapText(a.Description, termWidth-len(indent.AtLevel(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent.AtLevel(2), line)
		}
	}
	if len(optionFlags) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indent.AtLevel(1))
		for _, flag := range optionFlags {
			a.formatFlagLine(&sb, flag, indent, termWidth, globalMaxWidth, globalMaxUsageWidth)
		}
	}

	groups := make([]FlagGroup, len(a.FlagSet.flagGroups))
	copy(groups, a.FlagSet.flagGroups)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, group := range groups {
		a.formatFlagGroup(&sb, group, indent, termWidth, globalMaxWidth, globalMaxUsageWidth)
	}
	fmt.Fprint(w, sb.String())
}

// getOptionFlags returns the plain (non-group) flags sorted by name.
func (a *App) getOptionFlags() []*Flag {
	var optionFlags []*Flag
	for _, flag := range a.FlagSet.flags {
		if !a.isGroupFlag(flag.Name) {
			optionFlags = append(optionFlags, flag)
		}
	}
	sort.Slice(optionFlags, func(i, j int) bool { return optionFlags[i].Name < optionFlags[j].Name })
	return optionFlags
}

func (a *App) isGroupFlag(flagName string) bool {
	for _, group := range a.FlagSet.flagGroups {
		for _, entry := range group.Flags {
			if flagName == entry.Prefix+entry.Name || flagName == entry.Prefix+"no-"+entry.Name {
				return true
			}
		}
	}
	return false
}

func (a *App) calculateGlobalMaxWidth() int {
	maxWidth := 0
	for _, flag := range a.getOptionFlags() {
		maxWidth = max(maxWidth, len(a.formatFlagString(flag)))
	}
	for _, group := range a.FlagSet.flagGroups {
		if len(group.Flags) == 0 {
			continue
		}
		prefix := group.Flags[0].Prefix
		maxWidth = max(maxWidth, len(fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType)))
		for _, entry := range group.Flags {
			maxWidth = max(maxWidth, len(entry.Name))
		}
	}
	return maxWidth
}

func (a *App) formatFlagString(flag *Flag) string {
	var flagStr strings.Builder
	isBool := isBoolFlag(flag)
	if flag.Shorthand != "" {
		fmt.Fprintf(&flagStr, "-%s", flag.Shorthand)
		if !isBool {
			fmt.Fprintf(&flagStr, " <%s>", flag.ExpectedType)
		}
		fmt.Fprintf(&flagStr, ", --%s", flag.Name)
		if !isBool {
			fmt.Fprintf(&flagStr, " <%s>", flag.ExpectedType)
		}
		return flagStr.String()
	}
	fmt.Fprintf(&flagStr, "--%s", flag.Name)
	if !isBool && flag.ExpectedType != "" {
		fmt.Fprintf(&flagStr, "=%s", flag.ExpectedType)
	}
	return flagStr.String()
}

func (a *App) formatEntry(sb *strings.Builder, indent *IndentState, termWidth int, leftPart, usagePart, rightPart string, leftWidth, maxUsageWidth int) {
	indentStr := indent.AtLevel(2)
	fixedWidth := len(indentStr) + leftWidth + 1 + 2 + len(rightPart)
	usageWidth := max(termWidth-fixedWidth, 10)

	usageLines := wrapText(usagePart, usageWidth)
	first := ""
	if len(usageLines) > 0 {
		first = usageLines[0]
	}

	if rightPart != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indentStr, leftWidth, leftPart, min(maxUsageWidth, usageWidth), first, rightPart)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indentStr, leftWidth, leftPart, first)
	}
	wrappedIndent := strings.Repeat(" ", leftWidth+1)
	for _, line := range usageLines[min(1, len(usageLines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indentStr, wrappedIndent, line)
	}
}

func (a *App) formatFlagLine(sb *strings.Builder, flag *Flag, indent *IndentState, termWidth, maxWidth, maxUsageWidth int) {
	rightPart := ""
	if flag.DefValue != "" && !isBoolFlag(flag) {
		rightPart = fmt.Sprintf("|%s|", flag.DefValue)
	}
	a.formatEntry(sb, indent, termWidth, a.formatFlagString(flag), flag.Usage, rightPart, maxWidth, maxUsageWidth)
}

func (a *App) formatFlagGroup(sb *strings.Builder, group FlagGroup, indent *IndentState, termWidth, maxWidth, maxUsageWidth int) {
	if len(group.Flags) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s%s\n", indent.AtLevel(1), group.Name)

	prefix := group.Flags[0].Prefix
	groupType := group.GroupType
	if groupType == "" {
		groupType = "flag"
	}
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indent.AtLevel(2), maxWidth, fmt.Sprintf("-%s<%s>", prefix, groupType), groupType)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indent.AtLevel(2), maxWidth, fmt.Sprintf("-%sno-<%s>", prefix, groupType), groupType)
	if group.AvailableFlagsHeader != "" {
		fmt.Fprintf(sb, "%s%s\n", indent.AtLevel(1), group.AvailableFlagsHeader)
	}

	entries := make([]FlagGroupEntry, len(group.Flags))
	copy(entries, group.Flags)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, entry := range entries {
		state := "|-|"
		if entry.Enabled != nil && *entry.Enabled && (entry.Disabled == nil || !*entry.Disabled) {
			state = "|x|"
		}
		a.formatEntry(sb, indent, termWidth, entry.Name, entry.Usage, state, maxWidth, maxUsageWidth)
	}
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var lines []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+len(word)+1 > maxWidth {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
