package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"smart_parking_lot/internal/domain"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"
)

var (
	ErrPlateNotRecognized = errors.New("no licence plate recognised in image")
	ErrLPRUnavailable     = errors.New("plate recognition is not configured")
	ErrInvalidImage       = errors.New("image is not valid base64")
)

// TextDetector is the part of the Rekognition client the LPR service uses.
type TextDetector interface {
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Plates accepted from OCR output after spaces and dots are removed.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]{1,4}-?[A-Z0-9]{1,6}$`)

type LPRService struct {
	detector TextDetector
	logger   *zap.Logger
}

// NewLPRService accepts a nil detector; every call then fails with
// ErrLPRUnavailable.
func NewLPRService(detector TextDetector, logger *zap.Logger) *LPRService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LPRService{detector: detector, logger: logger}
}

func (s *LPRService) Enabled() bool { return s.detector != nil }

// RecognizeBase64 decodes a base64 frame and recognises its plate.
func (s *LPRService) RecognizeBase64(ctx context.Context, imageBase64 string) (string, float32, error) {
	if idx := strings.Index(imageBase64, ","); strings.HasPrefix(imageBase64, "data:") && idx > 0 {
		imageBase64 = imageBase64[idx+1:]
	}
	img, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil || len(img) == 0 {
		return "", 0, ErrInvalidImage
	}
	return s.ProcessImageForLPR(ctx, img)
}

// ProcessImageForLPR runs text detection on the image and returns the
// plate-shaped line or word with the highest confidence.
func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.detector == nil {
		return "", 0, ErrLPRUnavailable
	}

	result, err := s.detector.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: imageBytes},
	})
	if err != nil {
		return "", 0, fmt.Errorf("rekognition detect text: %w", err)
	}

	var (
		best          string
		maxConfidence float32
		seen          []string
	)
	for _, td := range result.TextDetections {
		if td.Type != types.TextTypesLine && td.Type != types.TextTypesWord {
			continue
		}
		if td.DetectedText == nil || td.Confidence == nil {
			continue
		}
		txt := strings.ToUpper(strings.ReplaceAll(*td.DetectedText, " ", ""))
		txt = strings.ReplaceAll(txt, ".", "")
		seen = append(seen, txt)

		if !plateRegex.MatchString(txt) || domain.ValidatePlate(txt) != nil {
			continue
		}
		if *td.Confidence > maxConfidence {
			maxConfidence = *td.Confidence
			best = txt
		}
	}

	if best == "" {
		s.logger.Info("No plate matched OCR output", zap.Strings("detected", seen))
		return "", 0, ErrPlateNotRecognized
	}
	s.logger.Debug("Plate recognised", zap.String("plate", best), zap.Float32("confidence", maxConfidence))
	return best, maxConfidence, nil
}
