package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/contribscout/server/internal/models"
)

// OpportunityMongo provides lexical and vector search over the
// "opportunities" collection, plus plain document access for ingestion and
// detail endpoints.
//
// Expected Atlas indexes:
//
//	opportunity_search  – $search index over title/description/labels with
//	                      filterable structural fields
//	opportunity_vectors – $vectorSearch index on "embedding" (cosine), with
//	                      the same structural fields declared as filters
type OpportunityMongo struct {
	col       *mongo.Collection
	searchIdx string
	vectorIdx string
	dim       int // Configured embedding dimension
}

// NewOpportunityRepository wires the collection. dim is the embedding
// dimension the vector index was built with.
func NewOpportunityRepository(db *mongo.Database, dim int) *OpportunityMongo {
	return &OpportunityMongo{
		col:       db.Collection("opportunities"),
		searchIdx: "opportunity_search",
		vectorIdx: "opportunity_vectors",
		dim:       dim,
	}
}

// -------------------------- document access ---------------------------------

// FindByID fetches one opportunity by its "owner/repo#123" identifier.
func (r *OpportunityMongo) FindByID(ctx context.Context, id string) (models.Opportunity, error) {
	var opp models.Opportunity
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&opp)
	if err == mongo.ErrNoDocuments {
		return opp, fmt.Errorf("opportunity %s: %w", id, models.ErrNotFound)
	}
	return opp, err
}

// Upsert writes an opportunity document, replacing any previous version.
// The embedding and text fields land in one write, so readers never see a
// partially updated document.
func (r *OpportunityMongo) Upsert(ctx context.Context, opp models.Opportunity) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": opp.ID}, opp, opts)
	return err
}

// MarkState transitions an opportunity to closed or stale. Opportunities
// are never deleted.
func (r *OpportunityMongo) MarkState(ctx context.Context, id, state string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"state": state, "updated_at": time.Now()},
	})
	return err
}

// -------------------------- lexical adapter ---------------------------------

// LexicalSearch runs an Atlas full-text query. Structural filters are
// applied inside the $search stage, before scoring, never as a post-filter.
// Scores are normalized to [0,1] against the page's top score; zero-score
// candidates are excluded rather than returned. An empty query is a
// filter-only browse: those matches carry no relevance signal and score a
// uniform 1.0 instead.
func (r *OpportunityMongo) LexicalSearch(ctx context.Context, queryText string, filters models.SearchFilters, limit int) ([]models.OpportunityHit, error) {
	hasQuery := strings.TrimSpace(queryText) != ""

	compound := bson.D{
		{Key: "filter", Value: searchFilterClauses(filters)},
	}
	if hasQuery {
		compound = append(compound, bson.E{Key: "must", Value: bson.A{
			bson.D{{Key: "text", Value: bson.D{
				{Key: "query", Value: queryText},
				{Key: "path", Value: bson.A{"title", "description", "labels", "skills"}},
			}}},
		}})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$search", Value: bson.D{
			{Key: "index", Value: r.searchIdx},
			{Key: "compound", Value: compound},
		}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "search_score", Value: bson.D{{Key: "$meta", Value: "searchScore"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "embedding", Value: 0}}}},
	}

	hits, err := r.aggregateHits(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("lexical index: %w: %v", models.ErrIndexUnavailable, err)
	}
	return scoreLexicalPage(hits, hasQuery), nil
}

// -------------------------- vector adapter ----------------------------------

// VectorSearch runs an approximate nearest-neighbor query against the
// stored embeddings. Structural filters go into the $vectorSearch filter
// document so they prune the index traversal itself; post-filtering an
// approximate top-K silently under-returns. Candidates scoring below
// threshold are dropped.
func (r *OpportunityMongo) VectorSearch(ctx context.Context, queryVec []float32, filters models.SearchFilters, threshold float64, limit int) ([]models.OpportunityHit, error) {
	if len(queryVec) != r.dim {
		return nil, fmt.Errorf("query vector has %d dims, index has %d: %w",
			len(queryVec), r.dim, models.ErrDimensionMismatch)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: r.vectorIdx},
			{Key: "queryVector", Value: queryVec},
			{Key: "path", Value: "embedding"},
			{Key: "numCandidates", Value: limit * 10},
			{Key: "limit", Value: limit},
			{Key: "filter", Value: vectorFilter(filters)},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "search_score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "embedding", Value: 0}}}},
	}

	hits, err := r.aggregateHits(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector index: %w: %v", models.ErrIndexUnavailable, err)
	}

	// Atlas maps cosine similarity into [0,1] already; just cut the tail.
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out, nil
}

// -------------------------- helpers -----------------------------------------

func (r *OpportunityMongo) aggregateHits(ctx context.Context, pipeline mongo.Pipeline) ([]models.OpportunityHit, error) {
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var hits []models.OpportunityHit
	if err := cur.All(ctx, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// scoreLexicalPage rescales raw Lucene scores into [0,1] by the top score
// of the page and drops zero-relevance hits. Filter-only browses are the
// exception: Atlas filter clauses contribute nothing to searchScore, so
// every match on that path scores zero and gets a uniform 1.0 instead of
// being dropped.
func scoreLexicalPage(hits []models.OpportunityHit, hasQuery bool) []models.OpportunityHit {
	if !hasQuery {
		for i := range hits {
			hits[i].Score = 1.0
		}
		return hits
	}

	var top float64
	for _, h := range hits {
		if h.Score > top {
			top = h.Score
		}
	}
	if top == 0 {
		return nil
	}

	out := hits[:0]
	for _, h := range hits {
		if h.Score <= 0 {
			continue
		}
		h.Score = h.Score / top
		out = append(out, h)
	}
	return out
}

// searchFilterClauses builds the compound.filter array for $search. Only
// open opportunities are searchable.
func searchFilterClauses(f models.SearchFilters) bson.A {
	clauses := bson.A{
		textClause("state", models.OpportunityOpen),
	}

	if f.Language != "" {
		clauses = append(clauses, textClause("repo_language", strings.ToLower(f.Language)))
	}
	if f.Difficulty != "" {
		clauses = append(clauses, textClause("difficulty", strings.ToLower(f.Difficulty)))
	}
	for _, label := range f.Labels {
		clauses = append(clauses, textClause("labels", label))
	}
	for _, skill := range f.Skills {
		clauses = append(clauses, textClause("skills", skill))
	}
	if f.GoodFirstIssue != nil {
		clauses = append(clauses, equalsClause("good_first_issue", *f.GoodFirstIssue))
	}
	if f.Mentorship != nil {
		clauses = append(clauses, equalsClause("mentorship", *f.Mentorship))
	}
	if f.Hacktoberfest != nil {
		clauses = append(clauses, equalsClause("hacktoberfest", *f.Hacktoberfest))
	}
	if rc := rangeClause("difficulty_score", f.MinDifficulty, f.MaxDifficulty); rc != nil {
		clauses = append(clauses, rc)
	}
	if rc := rangeClause("impact_score", f.MinImpact, f.MaxImpact); rc != nil {
		clauses = append(clauses, rc)
	}
	if f.MinStars > 0 {
		min := float64(f.MinStars)
		if rc := rangeClause("repo_stars", &min, nil); rc != nil {
			clauses = append(clauses, rc)
		}
	}
	return clauses
}

func textClause(path, value string) bson.D {
	return bson.D{{Key: "text", Value: bson.D{
		{Key: "query", Value: value},
		{Key: "path", Value: path},
	}}}
}

func equalsClause(path string, value bool) bson.D {
	return bson.D{{Key: "equals", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "value", Value: value},
	}}}
}

func rangeClause(path string, min, max *float64) bson.D {
	rng := bson.D{{Key: "path", Value: path}}
	if min != nil {
		rng = append(rng, bson.E{Key: "gte", Value: *min})
	}
	if max != nil {
		rng = append(rng, bson.E{Key: "lte", Value: *max})
	}
	if len(rng) == 1 {
		return nil
	}
	return bson.D{{Key: "range", Value: rng}}
}

// vectorFilter builds the pre-filter document for $vectorSearch. The same
// structural fields as the lexical filter, expressed as MQL match operators.
func vectorFilter(f models.SearchFilters) bson.M {
	filter := bson.M{"state": models.OpportunityOpen}

	if f.Language != "" {
		filter["repo_language"] = strings.ToLower(f.Language)
	}
	if f.Difficulty != "" {
		filter["difficulty"] = strings.ToLower(f.Difficulty)
	}
	if len(f.Labels) > 0 {
		filter["labels"] = bson.M{"$all": f.Labels}
	}
	if len(f.Skills) > 0 {
		filter["skills"] = bson.M{"$in": f.Skills}
	}
	if f.GoodFirstIssue != nil {
		filter["good_first_issue"] = *f.GoodFirstIssue
	}
	if f.Mentorship != nil {
		filter["mentorship"] = *f.Mentorship
	}
	if f.Hacktoberfest != nil {
		filter["hacktoberfest"] = *f.Hacktoberfest
	}
	if rng := rangeMatch(f.MinDifficulty, f.MaxDifficulty); rng != nil {
		filter["difficulty_score"] = rng
	}
	if rng := rangeMatch(f.MinImpact, f.MaxImpact); rng != nil {
		filter["impact_score"] = rng
	}
	if f.MinStars > 0 {
		filter["repo_stars"] = bson.M{"$gte": f.MinStars}
	}
	return filter
}

func rangeMatch(min, max *float64) bson.M {
	if min == nil && max == nil {
		return nil
	}
	rng := bson.M{}
	if min != nil {
		rng["$gte"] = *min
	}
	if max != nil {
		rng["$lte"] = *max
	}
	return rng
}
