package service

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/contribscout/server/internal/models"
)

// VertexEmbedder generates embeddings with Vertex AI's text-embedding model.
// It implements EmbeddingProvider; the gateway layers caching on top.
type VertexEmbedder struct {
	client    *aiplatform.PredictionClient
	modelName string
}

// NewVertexEmbedder creates a prediction client for the given GCP project.
// credentialsFile may be empty to use application-default credentials.
func NewVertexEmbedder(ctx context.Context, projectID, location, credentialsFile string) (*VertexEmbedder, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := aiplatform.NewPredictionClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	modelName := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/text-embedding-005",
		projectID, location)

	return &VertexEmbedder{
		client:    client,
		modelName: modelName,
	}, nil
}

// Embed generates one embedding vector using task_type = "RETRIEVAL_QUERY"
// so query vectors align with the stored document embeddings.
func (v *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := v.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch submits all texts in one Predict call. Any upstream failure or
// malformed response fails the whole batch.
func (v *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	instances := make([]*structpb.Value, 0, len(texts))
	for _, text := range texts {
		instance, err := structpb.NewStruct(map[string]interface{}{
			"content":   text,
			"task_type": "RETRIEVAL_QUERY",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		instances = append(instances, structpb.NewStructValue(instance))
	}

	req := &aiplatformpb.PredictRequest{
		Endpoint:  v.modelName,
		Instances: instances,
	}

	resp, err := v.client.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %v", models.ErrProviderUnavailable, err)
	}

	if len(resp.Predictions) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d predictions, got %d",
			models.ErrProviderUnavailable, len(texts), len(resp.Predictions))
	}

	out := make([][]float32, len(resp.Predictions))
	for i, p := range resp.Predictions {
		prediction := p.GetStructValue()
		embeddings := prediction.GetFields()["embeddings"].GetStructValue()
		values := embeddings.GetFields()["values"].GetListValue().GetValues()
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding in prediction %d",
				models.ErrProviderUnavailable, i)
		}

		vec := make([]float32, len(values))
		for j, val := range values {
			vec[j] = float32(val.GetNumberValue())
		}
		out[i] = vec
	}

	return out, nil
}

// Close releases the Vertex AI client resources.
func (v *VertexEmbedder) Close() error {
	return v.client.Close()
}
