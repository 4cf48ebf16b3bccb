package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/igs-tools/igsup/internal/demis"
)

// SplitSizes returns the chunk lengths for a file of the given total size
// split into parts of partSize bytes: ceil(total/partSize) chunks, all of
// length partSize except a possibly shorter final chunk.
func SplitSizes(total, partSize int64) []int64 {
	if total <= 0 || partSize <= 0 {
		return nil
	}

	count := (total + partSize - 1) / partSize
	sizes := make([]int64, count)

	for i := range sizes {
		sizes[i] = partSize
	}

	if rem := total % partSize; rem != 0 {
		sizes[count-1] = rem
	}

	return sizes
}

// transferChunks reads the file in consecutive partSize chunks and PUTs
// chunk i (1-based) to presigned URL i, collecting entity tags in upload
// order. Transfer stops at the first failure: chunks already completed are
// retained, later ones are not attempted, and there is no retry. The
// completed list is returned alongside the error so the completion call
// can still report what actually made it.
func (p *Pipeline) transferChunks(
	ctx context.Context, path string, info *demis.UploadInfo,
) ([]demis.CompletedChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload: opening %s: %w", path, err)
	}
	defer f.Close()

	var completed []demis.CompletedChunk

	buf := make([]byte, info.PartSizeBytes)

	for partNumber := 1; ; partNumber++ {
		n, readErr := io.ReadFull(f, buf)
		if readErr == io.EOF {
			break
		}

		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return completed, fmt.Errorf("upload: reading chunk %d of %s: %w", partNumber, path, readErr)
		}

		if partNumber > len(info.PresignedURLs) {
			return completed, fmt.Errorf("upload: file has more chunks than presigned URLs (%d)",
				len(info.PresignedURLs))
		}

		etag, putErr := p.svc.PutChunk(ctx, info.PresignedURLs[partNumber-1], buf[:n])
		if putErr != nil {
			return completed, fmt.Errorf("upload: transferring chunk %d: %w", partNumber, putErr)
		}

		completed = append(completed, demis.CompletedChunk{
			PartNumber: partNumber,
			ETag:       etag,
		})

		p.logger.Debug("chunk transferred",
			slog.Int("part", partNumber),
			slog.Int("bytes", n),
			slog.String("etag", etag),
		)

		// ErrUnexpectedEOF marks the shorter final chunk.
		if readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	return completed, nil
}
