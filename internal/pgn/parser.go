// Package pgn reads the tag pairs and a move-count estimate out of PGN text.
// It does not replay moves.
package pgn

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnknownEvent names the tournament of games without an Event tag.
const UnknownEvent = "Unknown Event"

// Result codes.
const (
	ResultWhiteWins  = "1-0"
	ResultBlackWins  = "0-1"
	ResultDraw       = "1/2-1/2"
	ResultUnfinished = "*"
)

const (
	dateLayout  = "2006.1.2"
	unknownDate = "????.??.??"
)

var moveNumberRe = regexp.MustCompile(`^\d+\.`)

// Game is one parsed game record.
type Game struct {
	// Headers holds every well-formed tag pair; last occurrence wins.
	Headers map[string]string

	Event   string
	Site    string
	Date    *time.Time
	Round   *int
	White   string
	Black   string
	Result  string // normalized result code, empty when missing or unknown
	ECO     string
	Opening string
	Moves   *int
}

// Complete reports whether the game can be placed in a tournament table.
func (g Game) Complete() bool {
	return g.White != "" && g.Black != "" && g.Result != ""
}

// ParseAll splits text into games and parses each of them.
func ParseAll(text string) []Game {
	chunks := Split(text)
	games := make([]Game, 0, len(chunks))
	for _, c := range chunks {
		games = append(games, Parse(c))
	}
	return games
}

// Split partitions a PGN blob into per-game chunks. A chunk starts at every
// line opening an Event tag. Empty chunks are discarded.
func Split(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	var chunks []string
	var cur []string
	flush := func() {
		chunk := strings.Join(cur, "\n")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		cur = cur[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if isEventTag(line) && len(cur) > 0 {
			flush()
		}
		cur = append(cur, line)
	}
	flush()
	return chunks
}

func isEventTag(line string) bool {
	rest, ok := strings.CutPrefix(line, "[Event")
	if !ok {
		return false
	}
	trimmed := strings.TrimLeft(rest, " \t")
	return len(trimmed) < len(rest) && strings.HasPrefix(trimmed, `"`)
}

// Parse extracts the tags, typed fields and move estimate of one chunk.
func Parse(chunk string) Game {
	headers, movetext := sections(chunk)

	g := Game{
		Headers: headers,
		Event:   headers["Event"],
		Site:    headers["Site"],
		Date:    ParseDate(headers["Date"]),
		Round:   ParseRound(headers["Round"]),
		White:   headers["White"],
		Black:   headers["Black"],
		ECO:     headers["ECO"],
		Opening: headers["Opening"],
		Moves:   CountMoves(movetext),
	}
	if g.Event == "" {
		g.Event = UnknownEvent
	}
	if r, ok := NormalizeResult(headers["Result"]); ok {
		g.Result = r
	}
	return g
}

// ParseHeaders returns the tag pairs of a chunk.
func ParseHeaders(chunk string) map[string]string {
	headers, _ := sections(chunk)
	return headers
}

type state int

const (
	stateTags state = iota
	stateMoves
)

// sections runs the chunk through a two-state machine. Lines before the
// first tag are skipped. A non-tag line starts the movetext unless another
// tag follows it before the next blank line. Malformed tag lines are ignored.
func sections(chunk string) (map[string]string, string) {
	headers := make(map[string]string)
	var moves strings.Builder
	st := stateTags

	lines := strings.Split(chunk, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch st {
		case stateTags:
			if trimmed == "" {
				continue
			}
			if strings.HasPrefix(trimmed, "[") {
				if name, value, ok := parseTag(trimmed); ok {
					headers[name] = value
				}
				continue
			}
			if len(headers) == 0 || tagFollows(lines[i+1:]) {
				continue
			}
			st = stateMoves
			fallthrough
		case stateMoves:
			moves.WriteString(line)
			moves.WriteByte('\n')
		}
	}
	return headers, moves.String()
}

// tagFollows reports whether a well-formed tag comes before the next blank
// line.
func tagFollows(lines []string) bool {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return false
		}
		if _, _, ok := parseTag(trimmed); ok {
			return true
		}
	}
	return false
}

// parseTag reads `[Name "value"]`. Backslash escapes inside the value are
// honoured.
func parseTag(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
		return "", "", false
	}
	inner := line[1 : len(line)-1]

	i := 0
	for i < len(inner) && isNameByte(inner[i]) {
		i++
	}
	if i == 0 {
		return "", "", false
	}
	name := inner[:i]

	rest := strings.TrimLeft(inner[i:], " \t")
	if len(rest) == len(inner[i:]) || !strings.HasPrefix(rest, `"`) {
		return "", "", false
	}
	rest = rest[1:]

	var value strings.Builder
	for j := 0; j < len(rest); j++ {
		c := rest[j]
		switch {
		case c == '\\' && j+1 < len(rest):
			j++
			value.WriteByte(rest[j])
		case c == '"':
			if strings.TrimSpace(rest[j+1:]) != "" {
				return "", "", false
			}
			return name, value.String(), true
		default:
			value.WriteByte(c)
		}
	}
	return "", "", false
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// CountMoves estimates the number of moves by counting move-number tokens
// (`12.`, `12...`, `12.e4`) outside comments and variations. It returns nil
// when there are none.
func CountMoves(movetext string) *int {
	var b strings.Builder
	comment, lineComment, depth := false, false, 0
	atLineStart := true

	for _, r := range movetext {
		switch {
		case lineComment:
			if r == '\n' {
				lineComment = false
				b.WriteByte(' ')
			}
		case comment:
			if r == '}' {
				comment = false
				b.WriteByte(' ')
			}
		case r == '%' && atLineStart:
			lineComment = true
		case r == '{':
			comment = true
			b.WriteByte(' ')
		case r == ';':
			lineComment = true
		case r == '(':
			depth++
			b.WriteByte(' ')
		case r == ')':
			if depth > 0 {
				depth--
			}
			b.WriteByte(' ')
		case depth > 0:
		default:
			b.WriteRune(r)
		}
		atLineStart = r == '\n'
	}

	n := 0
	for _, tok := range strings.Fields(b.String()) {
		if moveNumberRe.MatchString(tok) {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return &n
}

// ParseDate reads a `YYYY.MM.DD` date; month and day may be unpadded.
// Placeholders and anything unparseable yield nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == unknownDate {
		return nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &d
}

// ParseRound reads an all-digit round number. Sub-rounds like "3.1",
// placeholders and empty strings yield nil.
func ParseRound(s string) *int {
	if s == "" {
		return nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// NormalizeResult maps a Result tag onto one of the result codes. Unfinished
// games ("*") are kept; unknown codes are rejected.
func NormalizeResult(s string) (string, bool) {
	switch strings.TrimSpace(s) {
	case ResultWhiteWins:
		return ResultWhiteWins, true
	case ResultBlackWins:
		return ResultBlackWins, true
	case ResultDraw, "½-½":
		return ResultDraw, true
	case ResultUnfinished:
		return ResultUnfinished, true
	default:
		return "", false
	}
}
