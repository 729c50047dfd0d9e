package services

import (
	"encoding/json"
	"testing"

	"github.com/openwork-hackathon/team-clawctor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetHasher_Deterministic(t *testing.T) {
	h := NewAssetHasher()

	a, err := h.Hash(sampleSubmission("S1"))
	require.NoError(t, err)
	b, err := h.Hash(sampleSubmission("S1"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestAssetHasher_IgnoresRefAndOrdering(t *testing.T) {
	h := NewAssetHasher()
	base, err := h.Hash(sampleSubmission("S1"))
	require.NoError(t, err)

	reordered := sampleSubmission("S2")
	answers := reordered.Sections[0].Answers
	answers[0], answers[1] = answers[1], answers[0]
	reordered.Sections = append([]models.SubmissionSection{{SectionKey: "net", Title: "Network", Order: 0}}, reordered.Sections...)
	withExtra := sampleSubmission("S1")
	withExtra.Sections = append(withExtra.Sections, models.SubmissionSection{SectionKey: "net", Title: "Network", Order: 0})

	got, err := h.Hash(reordered)
	require.NoError(t, err)
	want, err := h.Hash(withExtra)
	require.NoError(t, err)
	assert.Equal(t, want, got, "section and answer order must not matter")
	assert.NotEqual(t, base, got)

	sameContentNewRef := sampleSubmission("other-ref")
	got, err = h.Hash(sameContentNewRef)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestAssetHasher_NormalizesJSONAnswers(t *testing.T) {
	h := NewAssetHasher()

	one := sampleSubmission("S1")
	one.Sections[0].Answers[1].AnswerJSON = json.RawMessage(`{"b": 2, "a": [1, 2]}`)
	two := sampleSubmission("S1")
	two.Sections[0].Answers[1].AnswerJSON = json.RawMessage(`{"a":[1,2],"b":2}`)

	a, err := h.Hash(one)
	require.NoError(t, err)
	b, err := h.Hash(two)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssetHasher_ContentChangesDigest(t *testing.T) {
	h := NewAssetHasher()
	base, err := h.Hash(sampleSubmission("S1"))
	require.NoError(t, err)

	changed := sampleSubmission("S1")
	changed.Sections[0].Answers[0].AnswerText = "Yes"
	got, err := h.Hash(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, got)

	// Field boundaries are unambiguous.
	x := &models.Submission{Sections: []models.SubmissionSection{{SectionKey: "ab", Title: "c"}}}
	y := &models.Submission{Sections: []models.SubmissionSection{{SectionKey: "a", Title: "bc"}}}
	hx, err := h.Hash(x)
	require.NoError(t, err)
	hy, err := h.Hash(y)
	require.NoError(t, err)
	assert.NotEqual(t, hx, hy)
}

func TestAssetHasher_InvalidJSONAnswer(t *testing.T) {
	sub := sampleSubmission("S1")
	sub.Sections[0].Answers[1].AnswerJSON = json.RawMessage(`{broken`)

	_, err := NewAssetHasher().Hash(sub)
	assert.ErrorIs(t, err, ErrValidation)

	for _, raw := range []string{`[1] trailing`, `{"a":1}{"b":2}`, `"x" 1`} {
		sub.Sections[0].Answers[1].AnswerJSON = json.RawMessage(raw)
		_, err = NewAssetHasher().Hash(sub)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}

	sub.Sections[0].Answers[1].AnswerJSON = json.RawMessage(" [1] \n")
	_, err = NewAssetHasher().Hash(sub)
	assert.NoError(t, err, "surrounding whitespace is not trailing data")
}

func TestAssetHasher_DuplicateKeysAnyOrder(t *testing.T) {
	h := NewAssetHasher()
	build := func(first, second models.SubmissionAnswer) *models.Submission {
		return &models.Submission{Sections: []models.SubmissionSection{
			{SectionKey: "access", Order: 1, Answers: []models.SubmissionAnswer{first, second}},
		}}
	}
	yes := models.SubmissionAnswer{QuestionCode: "IA-1", QuestionText: "MFA?", AnswerText: "Yes"}
	no := models.SubmissionAnswer{QuestionCode: "IA-1", QuestionText: "MFA?", AnswerText: "No"}
	withJSON := models.SubmissionAnswer{QuestionCode: "IA-1", QuestionText: "MFA?", AnswerJSON: json.RawMessage(`{"b":1,"a":2}`)}

	a, err := h.Hash(build(yes, no))
	require.NoError(t, err)
	b, err := h.Hash(build(no, yes))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a, err = h.Hash(build(yes, withJSON))
	require.NoError(t, err)
	b, err = h.Hash(build(withJSON, yes))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Sections sharing order and key also hash the same in either order.
	s1 := models.SubmissionSection{SectionKey: "net", Title: "Network", Order: 2, Answers: []models.SubmissionAnswer{yes}}
	s2 := models.SubmissionSection{SectionKey: "net", Title: "Perimeter", Order: 2, Answers: []models.SubmissionAnswer{no}}
	a, err = h.Hash(&models.Submission{Sections: []models.SubmissionSection{s1, s2}})
	require.NoError(t, err)
	b, err = h.Hash(&models.Submission{Sections: []models.SubmissionSection{s2, s1}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
