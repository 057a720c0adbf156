package snapkit

import (
	"fmt"
	"strings"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
)

// parseShare validates sendMedia arguments and the files they reference.
// Every check runs before the provider is touched.
func (s *Service) parseShare(args dispatcher.Arguments) (*capability.Share, error) {
	if err := validate(sendMediaSchema, args); err != nil {
		return nil, argumentFailure(CodeSendMedia, err)
	}

	mediaType, _ := args.String("mediaType")
	share := &capability.Share{MediaType: capability.MediaType(mediaType)}
	share.Caption, _ = args.OptionalString("caption")
	share.AttachmentURL, _ = args.OptionalString("attachmentUrl")

	switch share.MediaType {
	case capability.MediaPhoto, capability.MediaVideo:
		path := mediaPath(args, share.MediaType)
		if path == "" {
			return nil, dispatcher.ArgumentError(CodeSendMedia,
				fmt.Sprintf("mediaType is set to %s but path is missing", strings.ToLower(mediaType)))
		}
		if err := s.requireFile(CodeSendMedia, path); err != nil {
			return nil, err
		}
		share.Path = path
	}

	if args.Has("sticker") {
		sticker, err := s.parseSticker(args)
		if err != nil {
			return nil, err
		}
		share.Sticker = sticker
	}
	return share, nil
}

// mediaPath reads "path", falling back to the per-type keys older callers send.
func mediaPath(args dispatcher.Arguments, mt capability.MediaType) string {
	if p, _ := args.OptionalString("path"); p != "" {
		return p
	}
	legacy := "imagePath"
	if mt == capability.MediaVideo {
		legacy = "videoPath"
	}
	p, _ := args.OptionalString(legacy)
	return p
}

func (s *Service) parseSticker(args dispatcher.Arguments) (*capability.Sticker, error) {
	m, err := args.Map("sticker")
	if err != nil {
		return nil, argumentFailure(CodeSendMedia, err)
	}

	st := &capability.Sticker{}
	if st.ImagePath, err = m.String("imagePath"); err != nil {
		return nil, argumentFailure(CodeSendMedia, fmt.Errorf("sticker: %w", err))
	}
	for key, dst := range map[string]*float64{
		"width":    &st.Width,
		"height":   &st.Height,
		"offsetX":  &st.OffsetX,
		"offsetY":  &st.OffsetY,
		"rotation": &st.Rotation,
	} {
		if *dst, err = m.Number(key); err != nil {
			return nil, argumentFailure(CodeSendMedia, fmt.Errorf("sticker: %w", err))
		}
	}
	if err := s.requireFile(CodeSendMedia, st.ImagePath); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) requireFile(code, path string) error {
	info, err := s.stat(path)
	if err != nil || info.IsDir() {
		return dispatcher.NewCommandError(code,
			fmt.Sprintf("file %s could not be found", path),
			map[string]interface{}{
				"kind":   dispatcher.KindArgument,
				"reason": capability.ReasonFileNotFound,
				"path":   path,
			})
	}
	return nil
}
