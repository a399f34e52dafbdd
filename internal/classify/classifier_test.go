package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStrongJobPost(t *testing.T) {
	c := New(0)
	res := c.Classify("Hiring fresher Python developer, job opening. Remote work from home. Apply now! Contact: hr@example.com Salary: ₹4 LPA")

	assert.True(t, res.IsJobPost)
	assert.GreaterOrEqual(t, res.Score, 0.5)
	assert.True(t, res.FresherFriendly)
	assert.True(t, res.RemoteFriendly)
	assert.Contains(t, res.Skills, "python")
	assert.NotEmpty(t, res.Contact)
	assert.NotEmpty(t, res.Salary)
}

func TestClassifyNoiseScoresLow(t *testing.T) {
	c := New(0)
	res := c.Classify("Weather is really nice today, perfect for a walk")

	assert.False(t, res.IsJobPost)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Skills)
}

func TestClassifyContactAloneIsNotAJob(t *testing.T) {
	c := New(0)
	res := c.Classify("Call me at 9876543210 or visit https://example.com")

	// Without any job keyword the score never flips the flag.
	assert.False(t, res.IsJobPost)
	assert.NotEmpty(t, res.Contact)
}

func TestClassifyExtractsStructuredFields(t *testing.T) {
	c := New(0)
	res := c.Classify("Job opening for React developer with 2+ years experience in Mumbai. Contact @techrecruiter")

	assert.Equal(t, "2+ years", res.Experience)
	assert.Equal(t, "mumbai", res.Location)
	assert.Equal(t, "@techrecruiter", res.Contact)
	assert.Contains(t, res.Skills, "react")
}

func TestClassifyBorderlinePost(t *testing.T) {
	// Two job keywords and one skill land under the default threshold.
	c := New(0)
	res := c.Classify("We are hiring a Python developer for our startup in Bangalore.")

	assert.False(t, res.IsJobPost)
	assert.Greater(t, res.Score, 0.0)

	// A lenient threshold accepts the same text.
	lenient := New(0.25)
	assert.True(t, lenient.Classify("We are hiring a Python developer for our startup in Bangalore.").IsJobPost)
}

func TestClassifyEmptyText(t *testing.T) {
	res := New(0).Classify("")
	assert.False(t, res.IsJobPost)
	assert.Zero(t, res.Score)
}

func TestClassifyScoreClamped(t *testing.T) {
	c := New(0)
	res := c.Classify("job hiring career position opening vacancy opportunity fresher intern remote wfh developer engineer apply html css javascript react python sql aws contact hr@corp.example salary ₹10 LPA")
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.True(t, res.IsJobPost)
}
