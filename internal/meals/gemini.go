package meals

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

const defaultModel = "gemini-1.5-flash"

const prompt = `Analiza la foto de esta comida y estima las calorías aportadas por cada grupo:
proteínas, hidratos de carbono, grasas y verduras.
Responde solo con un objeto JSON con este formato, sin texto adicional:
{"proteinas": number, "hidratos": number, "grasas": number, "verduras": number, "titulo": string}
Los valores son kcal, no gramos. "titulo" es un nombre corto del plato.`

type GeminiParams struct {
	ProjectID       string
	Location        string
	Model           string
	CredentialsFile string
}

// GeminiParser estimates meals with a Gemini model on Vertex AI.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ Parser = (*GeminiParser)(nil)

func NewGeminiParser(ctx context.Context, params GeminiParams) (*GeminiParser, error) {
	var opts []option.ClientOption
	if params.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(params.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, params.ProjectID, params.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("new vertex ai client: %w", err)
	}

	modelName := params.Model
	if modelName == "" {
		modelName = defaultModel
	}
	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	log.Debugf("gemini meal parser ready: %s/%s", params.Location, modelName)
	return &GeminiParser{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiParser) Estimate(ctx context.Context, image []byte, mimeType, hint string) (_ *Estimate, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geminiParser.estimate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	parts := []genai.Part{
		genai.Text(prompt),
		genai.Blob{MIMEType: mimeType, Data: image},
	}
	if hint = strings.TrimSpace(hint); hint != "" {
		parts = append(parts, genai.Text("Información adicional del usuario: "+hint))
	}

	resp, err := p.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no candidates", ErrUnusableEstimate)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return parseEstimate(text.String())
}

func (p *GeminiParser) Close() error {
	return p.client.Close()
}
