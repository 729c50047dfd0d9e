package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/openwork-hackathon/team-clawctor/internal/models"
)

// AssetHasher fingerprints the semantic content of a submission.
//
// The digest is content-addressed: two submissions with the same answers hash identically
// regardless of when they were made, of the order sections and answers arrive in, and of the
// key order inside JSON answers. The submission ref is an identifier, not content, and is excluded.
type AssetHasher struct{}

func NewAssetHasher() *AssetHasher {
	return &AssetHasher{}
}

// Hash returns the hex SHA-256 of the canonical form of sub.
func (h *AssetHasher) Hash(sub *models.Submission) (string, error) {
	canonical, err := h.Canonicalize(sub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize encodes sub as a stable byte sequence. Every field is length-prefixed so
// that no two distinct submissions share an encoding. Sections order by (order, key) and
// answers by question code; remaining ties break on the full encoding, so the result is a
// total order over the content.
func (h *AssetHasher) Canonicalize(sub *models.Submission) ([]byte, error) {
	type encodedSection struct {
		order int
		key   string
		body  []byte
	}
	sections := make([]encodedSection, 0, len(sub.Sections))
	for _, sec := range sub.Sections {
		body, err := encodeSection(sec)
		if err != nil {
			return nil, err
		}
		sections = append(sections, encodedSection{order: sec.Order, key: sec.SectionKey, body: body})
	}
	sort.Slice(sections, func(i, j int) bool {
		if sections[i].order != sections[j].order {
			return sections[i].order < sections[j].order
		}
		if sections[i].key != sections[j].key {
			return sections[i].key < sections[j].key
		}
		return bytes.Compare(sections[i].body, sections[j].body) < 0
	})

	var buf bytes.Buffer
	writeField(&buf, "questionnaire", sub.QuestionnaireID)
	writeCount(&buf, len(sections))
	for _, sec := range sections {
		buf.Write(sec.body)
	}
	return buf.Bytes(), nil
}

func encodeSection(sec models.SubmissionSection) ([]byte, error) {
	type encodedAnswer struct {
		code string
		body []byte
	}
	answers := make([]encodedAnswer, 0, len(sec.Answers))
	for _, a := range sec.Answers {
		normalized, err := normalizeJSON(a.AnswerJSON)
		if err != nil {
			return nil, ValidationError("answer_json", "for question "+a.QuestionCode+" is not valid JSON")
		}
		var b bytes.Buffer
		writeField(&b, "code", a.QuestionCode)
		writeField(&b, "question", a.QuestionText)
		writeField(&b, "text", strings.TrimSpace(a.AnswerText))
		writeField(&b, "json", normalized)
		answers = append(answers, encodedAnswer{code: a.QuestionCode, body: b.Bytes()})
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].code != answers[j].code {
			return answers[i].code < answers[j].code
		}
		return bytes.Compare(answers[i].body, answers[j].body) < 0
	})

	var buf bytes.Buffer
	writeField(&buf, "section", sec.SectionKey)
	writeField(&buf, "title", sec.Title)
	writeCount(&buf, len(answers))
	for _, a := range answers {
		buf.Write(a.body)
	}
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteByte('=')
	writeCount(buf, len(value))
	buf.WriteString(value)
}

func writeCount(buf *bytes.Buffer, n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	buf.Write(b[:])
}

// normalizeJSON re-encodes a single JSON value; encoding/json sorts object keys.
func normalizeJSON(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errors.New("trailing data after JSON value")
	}
	if v == nil {
		return "", nil
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
