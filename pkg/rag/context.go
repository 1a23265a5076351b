package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/ai"
	"github.com/kwenta-ph/kwenta/backend/pkg/analytics"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/logger"
)

const (
	hitsPerEntity   = 2
	contractsShown  = 10
	findingsShown   = 10
	flaggedShown    = 10
	phoenixShown    = 10
	crossShownLimit = 20
)

// Context is the grounding material assembled for one question.
type Context struct {
	Intent    Intent   `json:"intent"`
	Entities  []string `json:"entities"`
	Sections  []string `json:"-"`
	Sources   []string `json:"sources"`
	Graph     any      `json:"graph_context"`
	Truncated bool     `json:"truncated"`
}

// Text joins the sections as they are sent to the model.
func (c *Context) Text() string {
	return strings.Join(c.Sections, "\n\n")
}

func (c *Context) add(section string) {
	if section != "" {
		c.Sections = append(c.Sections, section)
	}
}

var (
	redFlagWords = []string{
		"red flag", "risk", "anomaly", "suspicious", "bid-rigging", "bid rigging",
		"collusion", "pattern", "single bidder", "single-bidder", "flag",
	}
	statsWords   = []string{"stat", "overview", "summary", "total", "concentration", "hhi", "monopol"}
	phoenixWords = []string{"phoenix", "blacklist", "re-regist", "reregist"}
)

// AssembleContext gathers the graph context for question. focusID, when
// set, adds the node the user is looking at. Enrichments are best effort;
// only an unreachable store fails the call.
func (e *Engine) AssembleContext(ctx context.Context, question, focusID string) (*Context, error) {
	c := &Context{
		Intent:   e.Classify(ctx, question),
		Entities: []string{},
		Sources:  []string{},
	}
	if names := e.ExtractEntities(ctx, question); names != nil {
		c.Entities = names
	}

	var err error
	switch c.Intent {
	case IntentRelationship:
		err = e.relationship(ctx, c)
	case IntentEntityLookup:
		err = e.entities(ctx, c)
	default:
		if err = e.entities(ctx, c); err == nil {
			err = e.analytical(ctx, c, question)
		}
	}
	if err != nil {
		return nil, err
	}

	if focusID != "" {
		detail, err := analytics.NodeDetail(ctx, e.reader, focusID)
		switch {
		case err == nil:
			c.add("Currently focused entity:\n" + formatNode(detail))
		case errors.Is(err, common.ErrStoreUnavailable):
			return nil, err
		}
	}

	if len(c.Sections) == 0 {
		stats, err := analytics.Stats(ctx, e.reader)
		if err != nil {
			return nil, err
		}
		c.add(formatStatsShort(stats))
	}

	c.Sections, c.Truncated = ai.TrimToTokens(c.Sections, e.budget)
	if c.Truncated {
		logger.Debug("[RAG] Context trimmed to token budget", "budget", e.budget, "sections", len(c.Sections))
	}
	c.Sources = Sources(c.Text())
	return c, nil
}

// lookup resolves a name to search hits, falling back to embedding
// similarity when the text search finds nothing.
func (e *Engine) lookup(ctx context.Context, name string, limit int) ([]common.SearchHit, error) {
	hits, err := e.reader.Search(ctx, name, "", limit)
	if err != nil || len(hits) > 0 || e.vectors == nil || e.client == nil {
		return hits, err
	}
	vec, err := e.client.GenerateEmbedding(ctx, []byte(name))
	if err != nil {
		logger.Warn("[RAG] Embedding lookup failed", "name", name, "err", err)
		return nil, nil
	}
	return e.vectors.SearchSimilar(ctx, vec, "", limit)
}

func (e *Engine) entities(ctx context.Context, c *Context) error {
	var agencies, contractors []common.SearchHit
	seen := make(map[string]bool)

	for _, name := range c.Entities {
		hits, err := e.lookup(ctx, name, 3)
		if err != nil {
			if errors.Is(err, common.ErrStoreUnavailable) {
				return err
			}
			continue
		}
		for _, h := range hits[:min(hitsPerEntity, len(hits))] {
			if seen[h.ID] {
				continue
			}
			seen[h.ID] = true

			detail, err := analytics.NodeDetail(ctx, e.reader, h.ID)
			if err != nil {
				if errors.Is(err, common.ErrStoreUnavailable) {
					return err
				}
				continue
			}
			if c.Graph == nil {
				c.Graph = detail
			}
			c.add(formatNode(detail))
			label := detail.Node.Label()

			switch h.Type {
			case common.NodeAgency:
				agencies = append(agencies, h)
				if conc, err := analytics.AgencyConcentration(ctx, e.reader, h.ID); err == nil {
					c.add(formatConcentration(conc))
				}
				if findings, err := analytics.EntityAuditFindings(ctx, e.reader, h.ID, findingsShown); err == nil {
					c.add(formatAuditFindings(findings, label))
				}
			case common.NodeContractor:
				contractors = append(contractors, h)
				if profile, err := analytics.ContractorProfile(ctx, e.reader, h.ID, e.flagLookup()); err == nil {
					c.add(formatProfile(profile))
				}
			case common.NodePolitician:
				if saln, err := analytics.SALNTimeline(ctx, e.reader, h.ID); err == nil {
					c.add(formatSALN(saln, label))
				}
				if paths, err := analytics.CampaignContracts(ctx, e.reader, h.ID); err == nil {
					c.add(formatCampaign(paths, label))
				}
			}
			if h.Type == common.NodeAgency || h.Type == common.NodeContractor {
				if rows, err := analytics.EntityContracts(ctx, e.reader, h.ID, "", contractsShown); err == nil {
					c.add(formatContracts(rows, label))
				}
			}
		}
	}

	for _, a := range agencies {
		for _, con := range contractors {
			rows, err := analytics.EntityContracts(ctx, e.reader, a.ID, con.ID, crossShownLimit)
			if err == nil {
				c.add(formatCrossContracts(rows, a.Name, con.Name))
			}
		}
	}
	return nil
}

func (e *Engine) relationship(ctx context.Context, c *Context) error {
	if len(c.Entities) < 2 {
		c.add("Could not identify two entities in the question.")
		return e.entities(ctx, c)
	}

	var ends []common.SearchHit
	for _, name := range c.Entities[:2] {
		hits, err := e.lookup(ctx, name, 1)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			c.add("Could not find entity: " + name)
			return nil
		}
		ends = append(ends, hits[0])
	}

	path, err := analytics.ShortestPath(ctx, e.reader, ends[0].ID, ends[1].ID, analytics.DefaultMaxHops)
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.add(formatNoPath(ends[0].Name, ends[1].Name, analytics.DefaultMaxHops))
	case err != nil:
		return err
	default:
		c.Graph = path
		c.add(formatPath(path, ends[0].Name, ends[1].Name))
	}
	return nil
}

func (e *Engine) analytical(ctx context.Context, c *Context, question string) error {
	q := strings.ToLower(question)

	if e.flags != nil && containsAny(q, redFlagWords) {
		flagged, err := e.flags.ListFlags(ctx, "", flaggedShown)
		if err != nil {
			logger.Warn("[RAG] Red flags unavailable", "err", err)
		} else {
			c.add(formatFlagged(flagged))
		}
	}

	if containsAny(q, phoenixWords) {
		pairs, err := analytics.PhoenixCompanies(ctx, e.reader)
		if err == nil {
			c.add(formatPhoenix(pairs[:min(phoenixShown, len(pairs))]))
		}
	}

	if containsAny(q, statsWords) || len(c.Sections) == 0 {
		stats, err := analytics.Stats(ctx, e.reader)
		if err != nil {
			return err
		}
		c.add(formatStats(stats))
	}
	return nil
}

func (e *Engine) flagLookup() analytics.FlagLookup {
	if e.flags == nil {
		return nil
	}
	return listerLookup{e.flags}
}

// listerLookup narrows a FlagLister to the flags of one entity.
type listerLookup struct {
	flags FlagLister
}

func (l listerLookup) FlagsFor(ctx context.Context, entityID string) ([]common.RedFlag, error) {
	flagged, err := l.flags.ListFlags(ctx, "", 200)
	if err != nil {
		return nil, err
	}
	for _, f := range flagged {
		if f.EntityID == entityID {
			return f.Flags, nil
		}
	}
	return []common.RedFlag{}, nil
}
