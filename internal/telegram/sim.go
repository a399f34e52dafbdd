package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Canned texts for synthetic message generation; a mix of plausible
// job posts and group noise so classifier behavior stays realistic in
// dry runs.
var simTexts = []string{
	"We are hiring a Python developer for our startup in Bangalore. Contact: 9876543210",
	"Looking for React developer with 2+ years experience. Remote work available.",
	"Job opening for fresher software engineer. No experience required. Apply now!",
	"Hiring frontend developer with HTML, CSS, JavaScript skills. Mumbai location.",
	"Career opportunity for DevOps engineer. AWS experience preferred.",
	"Internship position available for computer science students. 6 months duration.",
	"Full-time position for backend developer. Node.js and MongoDB required.",
	"Part-time work from home opportunity. Flexible hours. Contact for details.",
	"Just sharing some random thoughts about technology trends",
	"Check out this cool article about AI and machine learning",
	"Anyone know good restaurants in the area?",
	"Weather is really nice today, perfect for a walk",
	"Happy birthday to everyone in the group!",
	"This group is getting too noisy with all the spam",
}

// SimConfig tunes the simulated client.
type SimConfig struct {
	// JoinFailureRate is the probability in [0,1) that a join fails.
	JoinFailureRate float64
	// MessagesPerGroup caps how many synthetic messages a group yields.
	MessagesPerGroup int
}

// SimClient is a dry-run implementation of the client capability. All
// operations are instant and local; pacing belongs to the governor.
type SimClient struct {
	acct Account
	cfg  SimConfig
	rng  *rand.Rand
	mu   sync.Mutex
	now  func() time.Time
}

// NewSimClient builds a simulated client for one account. rng may be
// seeded for deterministic tests; nil gets a time-seeded source.
func NewSimClient(acct Account, cfg SimConfig, rng *rand.Rand) *SimClient {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MessagesPerGroup <= 0 {
		cfg.MessagesPerGroup = 50
	}
	return &SimClient{
		acct: acct,
		cfg:  cfg,
		rng:  rng,
		now:  time.Now,
	}
}

// SimFactory returns a ClientFactory producing simulated clients.
func SimFactory(cfg SimConfig, seed int64) ClientFactory {
	return func(acct Account) Client {
		return NewSimClient(acct, cfg, rand.New(rand.NewSource(seed)))
	}
}

// Connect always authenticates and returns a synthetic token.
func (c *SimClient) Connect(_ context.Context, sessionToken string) (string, error) {
	if sessionToken != "" {
		return sessionToken, nil
	}
	return fmt.Sprintf("sim-session-%s", c.acct.Phone), nil
}

// JoinPublic simulates joining a public group.
func (c *SimClient) JoinPublic(_ context.Context, handle string) error {
	return c.simJoin(handle)
}

// JoinInvite simulates joining by invite hash.
func (c *SimClient) JoinInvite(_ context.Context, inviteHash string) error {
	return c.simJoin(inviteHash)
}

func (c *SimClient) simJoin(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng.Float64() < c.cfg.JoinFailureRate {
		return fmt.Errorf("simulated join failure for %s", target)
	}
	return nil
}

// Messages produces a bounded synthetic message sequence.
func (c *SimClient) Messages(_ context.Context, group string, limit int) (MessageIter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.cfg.MessagesPerGroup
	if limit < n {
		n = limit
	}
	msgs := make([]RawMessage, 0, n)
	base := c.now().UTC()
	for i := 0; i < n; i++ {
		msgs = append(msgs, RawMessage{
			ID:       int64(n - i),
			Date:     base.Add(-time.Duration(i) * time.Hour),
			SenderID: 100000000 + c.rng.Int63n(900000000),
			Text:     simTexts[c.rng.Intn(len(simTexts))],
		})
	}
	_ = group
	return &sliceIter{msgs: msgs}, nil
}

// Disconnect is a no-op.
func (c *SimClient) Disconnect(context.Context) error { return nil }

// sliceIter drains a fixed slice; shared by the simulation and tests.
type sliceIter struct {
	msgs []RawMessage
	pos  int
}

// NewSliceIter wraps msgs in a MessageIter.
func NewSliceIter(msgs []RawMessage) MessageIter {
	return &sliceIter{msgs: msgs}
}

func (it *sliceIter) Next(ctx context.Context) (RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return RawMessage{}, false, err
	}
	if it.pos >= len(it.msgs) {
		return RawMessage{}, false, nil
	}
	m := it.msgs[it.pos]
	it.pos++
	return m, true, nil
}
