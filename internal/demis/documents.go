package demis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const contentTypeFHIR = "application/fhir+json"

// DocumentReference registration request types.
type documentReference struct {
	ResourceType string            `json:"resourceType"`
	Status       string            `json:"status"`
	Type         codeableConcept   `json:"type"`
	Date         string            `json:"date"`
	Description  string            `json:"description"`
	Content      []documentContent `json:"content"`
}

type codeableConcept struct {
	Coding []coding `json:"coding"`
}

type coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type documentContent struct {
	Attachment attachment `json:"attachment"`
}

type attachment struct {
	ContentType string `json:"contentType"`
	Title       string `json:"title"`
	Hash        string `json:"hash"`
	URL         string `json:"url"`
}

type documentReferenceResponse struct {
	ID string `json:"id"`
}

// ContentTypeForName maps a sequence file suffix to its registered media
// type. Gzip-compressed reads keep the media type of the underlying format.
func ContentTypeForName(name string) (string, error) {
	lower := strings.ToLower(name)

	switch {
	case hasAnySuffix(lower, ".fastq", ".fq", ".fastq.gz", ".fq.gz"):
		return "application/fastq", nil
	case hasAnySuffix(lower, ".fasta", ".fa", ".fasta.gz", ".fa.gz"):
		return "application/fasta", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}

	return false
}

// RegisterDocument registers a sequence file with the backend and returns
// the assigned document identifier. hexDigest is the file's SHA-256
// content digest, carried as an integrity attachment.
func (c *Client) RegisterDocument(ctx context.Context, fileName, hexDigest string) (string, error) {
	contentType, err := ContentTypeForName(fileName)
	if err != nil {
		return "", err
	}

	name := NormalizeName(fileName)

	doc := documentReference{
		ResourceType: "DocumentReference",
		Status:       "current",
		Type: codeableConcept{Coding: []coding{{
			System:  "http://snomed.info/sct",
			Code:    "258207000",
			Display: "Molecular sequence data (finding)",
		}}},
		Date:        time.Now().UTC().Format(time.RFC3339),
		Description: "Sequenzdatei " + name,
		Content: []documentContent{{Attachment: attachment{
			ContentType: contentType,
			Title:       name,
			Hash:        hexDigest,
			URL:         "",
		}}},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("demis: marshaling DocumentReference: %w", err)
	}

	c.logger.Info("registering document",
		slog.String("file", name),
		slog.String("content_type", contentType),
	)

	resp, err := c.do(ctx, http.MethodPost, "/fhir/DocumentReference", contentTypeFHIR, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var dr documentReferenceResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&dr); decErr != nil {
		return "", fmt.Errorf("demis: decoding DocumentReference response: %w", decErr)
	}

	c.logger.Info("document registered",
		slog.String("file", name),
		slog.String("document_id", dr.ID),
	)

	return dr.ID, nil
}
