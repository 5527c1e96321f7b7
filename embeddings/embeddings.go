package embeddings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hupe1980/annforest/vectorstore"
)

// ErrParse indicates a malformed line in an embedding file.
type ErrParse struct {
	Line int
	Msg  string
}

func (e *ErrParse) Error() string {
	return fmt.Sprintf("embeddings: line %d: %s", e.Line, e.Msg)
}

// Vocabulary is a bidirectional mapping between tokens and the dense
// item ids of the vector store they were loaded into.
type Vocabulary struct {
	ids    map[string]uint32
	tokens []string
}

func newVocabulary(capacity int) *Vocabulary {
	return &Vocabulary{
		ids:    make(map[string]uint32, capacity),
		tokens: make([]string, 0, capacity),
	}
}

// ID returns the item id of a token.
func (v *Vocabulary) ID(token string) (uint32, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the token of an item id.
func (v *Vocabulary) Token(id uint32) (string, bool) {
	if int(id) >= len(v.tokens) {
		return "", false
	}

	return v.tokens[id], true
}

// Len returns the number of tokens.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

func (v *Vocabulary) add(token string, id uint32) {
	v.ids[token] = id
	v.tokens = append(v.tokens, token)
}

// Load reads an embedding file from r into a fresh vector store and
// vocabulary. Tokens receive ids in file order.
func Load(r io.Reader) (*vectorstore.Store, *Vocabulary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}

		return nil, nil, &ErrParse{Line: 1, Msg: "missing header"}
	}

	count, dims, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, nil, err
	}

	store := vectorstore.NewWithCapacity(dims, count)
	vocab := newVocabulary(count)
	vector := make([]float32, dims)

	line := 1
	for scanner.Scan() {
		line++

		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		token, err := parseLine(text, vector, line)
		if err != nil {
			return nil, nil, err
		}

		if _, exists := vocab.ID(token); exists {
			return nil, nil, &ErrParse{Line: line, Msg: fmt.Sprintf("duplicate token %q", token)}
		}

		id, err := store.Append(vector)
		if err != nil {
			return nil, nil, err
		}

		vocab.add(token, id)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	if store.Size() != count {
		return nil, nil, &ErrParse{
			Line: line,
			Msg:  fmt.Sprintf("header declared %d items, file holds %d", count, store.Size()),
		}
	}

	return store, vocab, nil
}

// LoadFile reads an embedding file from disk.
func LoadFile(path string) (*vectorstore.Store, *Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return Load(bufio.NewReaderSize(f, 256*1024))
}

func parseHeader(text string) (count, dims int, err error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, &ErrParse{Line: 1, Msg: "header must be \"count dims\""}
	}

	count, err = strconv.Atoi(fields[0])
	if err != nil || count < 1 {
		return 0, 0, &ErrParse{Line: 1, Msg: fmt.Sprintf("invalid item count %q", fields[0])}
	}

	dims, err = strconv.Atoi(fields[1])
	if err != nil || dims < 1 {
		return 0, 0, &ErrParse{Line: 1, Msg: fmt.Sprintf("invalid dimensionality %q", fields[1])}
	}

	return count, dims, nil
}

// parseLine fills vector from one data line and returns its token.
func parseLine(text string, vector []float32, line int) (string, error) {
	fields := strings.Fields(text)
	if len(fields) != len(vector)+1 {
		return "", &ErrParse{
			Line: line,
			Msg:  fmt.Sprintf("expected %d fields, got %d", len(vector)+1, len(fields)),
		}
	}

	for i, field := range fields[1:] {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return "", &ErrParse{Line: line, Msg: fmt.Sprintf("invalid component %q", field)}
		}

		vector[i] = float32(v)
	}

	return fields[0], nil
}
