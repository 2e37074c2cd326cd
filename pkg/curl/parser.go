// Package curl turns a curl command line into a Request.
//
// Only the flags that shape the request are understood: the URL, -H/--header,
// -X/--request, -d/--data/--data-raw and -u/--user. --compressed, -s/--silent,
// -v/--verbose and -#/--progress-bar are accepted and ignored. Anything else is
// reported as a warning and dropped, or rejected when the parser is strict.
package curl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"

	"github.com/cone387/cone/pkg/core"
)

var (
	// ErrNotCurl is returned when the command does not start with "curl".
	ErrNotCurl = errors.New(`a curl command must start with "curl"`)
	// ErrUnknownOption is returned by a strict parser for flags it does not know.
	ErrUnknownOption = errors.New("unrecognized options")
	// ErrInvalid wraps every other parse failure.
	ErrInvalid = errors.New("there was an error parsing the curl command")
)

const op = "curl.Parse"

// Parser converts curl commands. The zero value is not usable; use NewParser.
type Parser struct {
	strict bool
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithStrict makes unknown flags an error instead of a warning.
func WithStrict() Option {
	return func(p *Parser) {
		p.strict = true
	}
}

// WithLogger sets the logger that receives unknown-flag warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Parse converts command with a default Parser.
func Parse(command string, opts ...Option) (Request, error) {
	return NewParser(opts...).Parse(command)
}

// lastValue is a string flag where the last occurrence wins. It lets several
// flag names share one destination.
type lastValue struct {
	value string
}

func (v *lastValue) Set(s string) error {
	v.value = s
	return nil
}

func (v *lastValue) String() string { return v.value }
func (v *lastValue) Type() string   { return "string" }

type flags struct {
	set     *pflag.FlagSet
	headers *[]string
	method  *string
	user    *string
	data    *lastValue
}

func newFlags() *flags {
	fs := pflag.NewFlagSet("curl", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	f := &flags{set: fs, data: &lastValue{}}
	f.headers = fs.StringArrayP("header", "H", nil, "request header")
	f.method = fs.StringP("request", "X", "", "request method")
	f.user = fs.StringP("user", "u", "", "server user and password")
	fs.VarP(f.data, "data", "d", "request body")
	fs.Var(f.data, "data-raw", "request body")

	fs.Bool("compressed", false, "ignored")
	fs.BoolP("silent", "s", false, "ignored")
	fs.BoolP("verbose", "v", false, "ignored")
	fs.BoolP("progress-bar", "#", false, "ignored")
	return f
}

// takesValue reports whether the flag consumes an argument.
func takesValue(f *pflag.Flag) bool {
	return f.NoOptDefVal == ""
}

// split separates args into those the flag set understands and the rest.
func (f *flags) split(args []string) (known, unknown []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			known = append(known, args[i:]...)
			return known, unknown

		case strings.HasPrefix(arg, "--"):
			name, _, hasValue := strings.Cut(arg[2:], "=")
			fl := f.set.Lookup(name)
			if fl == nil {
				unknown = append(unknown, arg)
				continue
			}
			known = append(known, arg)
			if !hasValue && takesValue(fl) && i+1 < len(args) {
				i++
				known = append(known, args[i])
			}

		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			ok, needsNext := f.shorthands(arg[1:])
			if !ok {
				unknown = append(unknown, arg)
				continue
			}
			known = append(known, arg)
			if needsNext && i+1 < len(args) {
				i++
				known = append(known, args[i])
			}

		default:
			known = append(known, arg)
		}
	}
	return known, unknown
}

// shorthands checks a cluster like "sv" or "XPOST". needsNext is set when the
// last flag in the cluster takes its value from the next argument.
func (f *flags) shorthands(cluster string) (ok, needsNext bool) {
	for i := 0; i < len(cluster); i++ {
		fl := f.set.ShorthandLookup(cluster[i : i+1])
		if fl == nil {
			return false, false
		}
		if takesValue(fl) {
			return true, i == len(cluster)-1
		}
	}
	return true, false
}

// tokenize splits command with shell quoting rules. Unquoted shell operators
// (; & | < >) are kept as literal text, so "a.com/?a=1&b=2" stays one word.
func tokenize(command string) ([]string, error) {
	rest := strings.NewReplacer("\\\r\n", " ", "\\\n", " ").Replace(command)

	var words []string
	glue := false
	for {
		p := shellwords.NewParser()
		args, err := p.Parse(rest)
		if err != nil {
			return nil, err
		}
		if glue && len(args) > 0 && len(words) > 0 && !startsWithSpace(rest) {
			words[len(words)-1] += args[0]
			args = args[1:]
		}
		words = append(words, args...)

		if p.Position < 0 {
			return words, nil
		}
		pos := stopIndex(rest, p.Position)
		if pos >= len(rest) {
			return words, nil
		}
		literal := rest[pos : pos+1]
		attached := (pos > 0 && !isSpace(rest[pos-1])) || (pos == 0 && glue)
		if attached && len(words) > 0 {
			words[len(words)-1] += literal
		} else {
			words = append(words, literal)
		}
		rest = rest[pos+1:]
		glue = true
	}
}

// stopIndex turns the lexer's stop position, counted in runes, into a byte
// offset into s.
func stopIndex(s string, pos int) int {
	n := 0
	for i := range s {
		if n == pos {
			if strings.ContainsRune(";&|<>0123456789", rune(s[i])) {
				return i
			}
			break
		}
		n++
	}
	return pos
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func startsWithSpace(s string) bool {
	return s != "" && isSpace(s[0])
}

// Parse converts a curl command line into a Request.
func (p *Parser) Parse(command string) (Request, error) {
	args, err := tokenize(command)
	if err != nil {
		return Request{}, core.E(core.KindParse, op, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	if len(args) == 0 || args[0] != "curl" {
		return Request{}, core.E(core.KindParse, op, ErrNotCurl)
	}

	f := newFlags()
	known, unknown := f.split(args[1:])
	if err := f.set.Parse(known); err != nil {
		return Request{}, core.E(core.KindParse, op, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	positional := f.set.Args()
	if len(positional) == 0 {
		return Request{}, core.E(core.KindParse, op, fmt.Errorf("%w: the following arguments are required: url", ErrInvalid))
	}
	unknown = append(unknown, positional[1:]...)

	if len(unknown) > 0 {
		if p.strict {
			return Request{}, core.E(core.KindParse, op, fmt.Errorf("%w: %s", ErrUnknownOption, strings.Join(unknown, ", ")))
		}
		p.logger.Warn("ignoring unrecognized curl options", "options", strings.Join(unknown, ", "))
	}

	headers, cookies, err := splitHeaders(*f.headers)
	if err != nil {
		return Request{}, core.E(core.KindParse, op, err)
	}

	method := "GET"
	if *f.method != "" {
		method = *f.method
	}

	req := Request{
		Method: strings.ToUpper(method),
		URL:    normalizeURL(positional[0]),
		User:   *f.user,
	}
	if len(headers) > 0 {
		req.Headers = headers
	}
	if len(cookies) > 0 {
		req.Cookies = cookies
	}
	if body := f.data.value; body != "" {
		req.Body = body
		if *f.method == "" {
			req.Method = "POST"
		}
	}
	return req, nil
}

// normalizeURL adds the scheme curl would assume.
func normalizeURL(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

func splitHeaders(raw []string) (headers, cookies map[string]string, err error) {
	headers = make(map[string]string)
	cookies = make(map[string]string)
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, nil, fmt.Errorf("%w: header %q has no colon", ErrInvalid, h)
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if strings.EqualFold(name, "cookie") {
			parseCookies(value, cookies)
			continue
		}
		headers[name] = value
	}
	return headers, cookies, nil
}

// parseCookies reads "a=1; b=2" into dst. Pairs without a name are skipped.
func parseCookies(line string, dst map[string]string) {
	for _, part := range strings.Split(line, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
			value = value[1 : len(value)-1]
		}
		dst[name] = value
	}
}
