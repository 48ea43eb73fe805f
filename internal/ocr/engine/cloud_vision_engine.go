package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/Goluxas/jp-image-to-dict/internal/errors"
	"github.com/Goluxas/jp-image-to-dict/internal/image"
	"github.com/Goluxas/jp-image-to-dict/internal/logger"
	"github.com/Goluxas/jp-image-to-dict/internal/ocr"
)

const cloudVisionName = "cloud-vision"

// imageAnnotator is the slice of the Vision client this engine uses.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// CloudVisionEngine sends images to Google Cloud Vision text detection.
type CloudVisionEngine struct {
	client  imageAnnotator
	timeout time.Duration
	log     *logrus.Entry
}

// NewCloudVisionEngine dials Cloud Vision using application default
// credentials, or credentialsFile when it is set.
func NewCloudVisionEngine(ctx context.Context, credentialsFile string, timeout time.Duration) (*CloudVisionEngine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating cloud vision client: %w", err)
	}
	return newCloudVisionEngine(client, timeout), nil
}

func newCloudVisionEngine(client imageAnnotator, timeout time.Duration) *CloudVisionEngine {
	return &CloudVisionEngine{
		client:  client,
		timeout: timeout,
		log:     logger.WithComponent("engine").WithField("engine", cloudVisionName),
	}
}

func (c *CloudVisionEngine) Name() string { return cloudVisionName }

// Recognize runs TEXT_DETECTION once; failed calls are not retried.
// Annotation 0 is the whole text; the rest are the service's own regions.
func (c *CloudVisionEngine) Recognize(ctx context.Context, img image.Canonical, hints []string) (ocr.RecognizedText, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: img.Bytes()},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: hints},
		}},
	}

	c.log.WithField("bytes", img.Len()).Debug("awaiting response from cloud vision")
	start := time.Now()
	resp, err := c.client.BatchAnnotateImages(ctx, req, gax.WithRetry(func() gax.Retryer { return nil }))
	if err != nil {
		return ocr.RecognizedText{}, c.transportFailure(ctx, err)
	}

	responses := resp.GetResponses()
	if len(responses) != 1 {
		return ocr.RecognizedText{}, apperrors.EngineFailure(cloudVisionName, 0,
			fmt.Sprintf("cloud vision returned %d responses for 1 image", len(responses)), nil)
	}
	r := responses[0]

	if code := r.GetError().GetCode(); code != 0 {
		return ocr.RecognizedText{}, apperrors.EngineFailure(cloudVisionName, int(code),
			fmt.Sprintf("cloud vision error %d: %s", code, r.GetError().GetMessage()), nil)
	}

	annotations := r.GetTextAnnotations()
	if len(annotations) == 0 {
		return ocr.RecognizedText{}, apperrors.EngineFailure(cloudVisionName, 0, "no text detected", nil)
	}

	segments := make([]ocr.Segment, 0, len(annotations))
	for _, a := range annotations {
		vertices := a.GetBoundingPoly().GetVertices()
		polygon := make([]ocr.Vertex, 0, len(vertices))
		for _, v := range vertices {
			polygon = append(polygon, ocr.Vertex{X: int(v.GetX()), Y: int(v.GetY())})
		}
		segments = append(segments, ocr.Segment{Text: a.GetDescription(), BoundingPolygon: polygon})
	}

	result := ocr.FromSegments(segments)
	if result.Empty() {
		return ocr.RecognizedText{}, apperrors.EngineFailure(cloudVisionName, 0, "no text detected", nil)
	}
	c.log.WithFields(logrus.Fields{
		"segments": len(segments),
		"bounds":   ocr.FormatPolygon(segments[0].BoundingPolygon),
		"elapsed":  time.Since(start),
	}).Debugf("recognized %q", result.FullText)
	return result, nil
}

func (c *CloudVisionEngine) transportFailure(ctx context.Context, err error) error {
	code := status.Code(err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || code == codes.DeadlineExceeded {
		return apperrors.EngineFailure(cloudVisionName, int(codes.DeadlineExceeded),
			fmt.Sprintf("cloud vision request timed out after %v", c.timeout), err)
	}
	return apperrors.EngineFailure(cloudVisionName, int(code),
		fmt.Sprintf("cloud vision request failed: %s", code), err)
}

func (c *CloudVisionEngine) Close() error {
	return c.client.Close()
}
