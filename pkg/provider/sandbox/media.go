package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/db"
	"github.com/morezero/snapkit-bridge/pkg/lifecycle"
)

const mediaLogPrefix = "sandbox:media"

// Send applies the vendor size limits and records the share.
func (p *Provider) Send(ctx context.Context, host lifecycle.Host, share *capability.Share) error {
	var size int64
	switch share.MediaType {
	case capability.MediaPhoto:
		n, err := p.fileSize(share.Path)
		if err != nil {
			return err
		}
		if n > p.opts.MaxPhotoBytes {
			return sizeExceeded(capability.ReasonMediaSizeExceeded, share.Path, n, p.opts.MaxPhotoBytes)
		}
		size = n
	case capability.MediaVideo:
		n, err := p.fileSize(share.Path)
		if err != nil {
			return err
		}
		if n > p.opts.MaxVideoBytes {
			return sizeExceeded(capability.ReasonMediaSizeExceeded, share.Path, n, p.opts.MaxVideoBytes)
		}
		size = n
	}

	if share.Sticker != nil {
		n, err := p.fileSize(share.Sticker.ImagePath)
		if err != nil {
			return err
		}
		if n > MaxStickerBytes {
			return sizeExceeded(capability.ReasonStickerSize, share.Sticker.ImagePath, n, MaxStickerBytes)
		}
	}

	if p.opts.Ledger != nil {
		rec, err := p.opts.Ledger.RecordShare(ctx, &db.ShareRecord{
			HostID:        host.ID(),
			Platform:      host.Platform(),
			MediaType:     string(share.MediaType),
			Path:          share.Path,
			SizeBytes:     size,
			Caption:       share.Caption,
			AttachmentURL: share.AttachmentURL,
			HasSticker:    share.Sticker != nil,
		})
		if err != nil {
			return storageError("record share", err)
		}
		slog.Info(fmt.Sprintf("%s - Recorded share %s for host %s", mediaLogPrefix, rec.ID, host.ID()))
		return nil
	}
	slog.Info(fmt.Sprintf("%s - Shared %s (%d bytes) for host %s", mediaLogPrefix, share.MediaType, size, host.ID()))
	return nil
}

func (p *Provider) fileSize(path string) (int64, error) {
	info, err := p.opts.Stat(path)
	if err != nil || info.IsDir() {
		return 0, capability.NewError(capability.ReasonFileNotFound,
			fmt.Sprintf("Could not find file %s", path),
			map[string]interface{}{"path": path})
	}
	return info.Size(), nil
}

func sizeExceeded(reason, path string, size, limit int64) error {
	return capability.NewError(reason,
		fmt.Sprintf("%s is %d bytes, limit is %d", path, size, limit),
		map[string]interface{}{"path": path, "size": size, "limit": limit})
}
