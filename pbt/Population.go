package pbt

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/samuelfneumann/smartslearn/utils/logging"
)

// DefaultQuantile is the fraction of the population which exploits the
// top of the population every round
const DefaultQuantile = 0.25

// Member is a single trial of the population
type Member struct {
	ID     int     `json:"id"`
	Config Config  `json:"config"`
	Score  float64 `json:"score"`

	// Checkpoint is the path of the member's latest checkpoint. Exploiting
	// members continue from the checkpoint of the member they copy.
	Checkpoint string `json:"checkpoint,omitempty"`

	// Parent is the ID of the member last exploited, or -1
	Parent int `json:"parent"`
}

// Evaluator runs a member for one round and returns its score. Higher
// scores are better. An Evaluator may update the member's Checkpoint.
type Evaluator func(ctx context.Context, m *Member) (float64, error)

// Population runs exploit and explore rounds over a set of Members
type Population struct {
	Members   []*Member
	Mutations []Mutation

	// Quantile is the fraction of members replaced each round
	Quantile float64

	// ResampleProbability is passed to Perturb
	ResampleProbability float64

	// Workers bounds the number of members evaluated concurrently
	Workers int

	rounds int
	rng    *rand.Rand
	mu     sync.Mutex
	logger *zap.Logger
}

// NewPopulation returns a population of size members with
// configurations sampled from mutations
func NewPopulation(size int, mutations []Mutation, workers int,
	seed uint64, logger *zap.Logger) (*Population, error) {
	if size < 1 {
		return nil, fmt.Errorf("newPopulation: size must be positive"+
			"\n\thave(%v)", size)
	}
	if workers < 1 {
		return nil, fmt.Errorf("newPopulation: workers must be positive"+
			"\n\thave(%v)", workers)
	}
	for _, m := range mutations {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("newPopulation: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	members := make([]*Member, size)
	for i := range members {
		members[i] = &Member{
			ID:     i,
			Config: Sample(mutations, rng),
			Parent: -1,
		}
	}

	return &Population{
		Members:             members,
		Mutations:           mutations,
		Quantile:            DefaultQuantile,
		ResampleProbability: DefaultResampleProbability,
		Workers:             workers,
		rng:                 rng,
		logger:              logging.OrNop(logger),
	}, nil
}

// Rounds returns the number of rounds completed
func (p *Population) Rounds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rounds
}

// Round evaluates every member concurrently and then replaces the
// bottom quantile of the population. Each replaced member copies the
// configuration and checkpoint of a random member of the top quantile
// and perturbs the configuration.
//
// If any evaluation fails, Round returns the first error and no member
// is replaced.
func (p *Population) Round(ctx context.Context, eval Evaluator) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	scores := make([]float64, len(p.Members))
	for i, m := range p.Members {
		i, m := i, m
		g.Go(func() error {
			score, err := eval(ctx, m)
			if err != nil {
				return fmt.Errorf("member %v: %w", m.ID, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("round: %w", err)
	}
	for i, m := range p.Members {
		m.Score = scores[i]
	}

	p.exploit()
	p.rounds++
	return nil
}

// exploit replaces the bottom quantile of members with perturbed
// copies of the top quantile
func (p *Population) exploit() {
	ranked := p.Ranked()
	n := int(float64(len(ranked)) * p.Quantile)
	if n == 0 || 2*n > len(ranked) {
		return
	}

	top := ranked[:n]
	for _, m := range ranked[len(ranked)-n:] {
		donor := top[p.rng.Intn(n)]

		m.Config = Perturb(donor.Config, p.Mutations, p.ResampleProbability,
			p.rng)
		m.Checkpoint = donor.Checkpoint
		m.Parent = donor.ID

		p.logger.Info("member exploited",
			zap.Int("round", p.rounds),
			zap.Int("member", m.ID),
			zap.Int("donor", donor.ID),
			zap.Float64("score", m.Score),
			zap.Float64("donorScore", donor.Score),
		)
	}
}

// Ranked returns the members ordered from highest to lowest score,
// ties broken by ID
func (p *Population) Ranked() []*Member {
	ranked := append([]*Member(nil), p.Members...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Best returns the highest scoring member
func (p *Population) Best() *Member {
	return p.Ranked()[0]
}
