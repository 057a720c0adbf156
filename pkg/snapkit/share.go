package snapkit

import (
	"context"
	"fmt"

	"github.com/morezero/snapkit-bridge/pkg/capability"
	"github.com/morezero/snapkit-bridge/pkg/dispatcher"
)

// shareCommand describes one of the per-media share commands older plugin
// revisions exposed instead of sendMedia.
type shareCommand struct {
	code      string
	success   string
	mediaType capability.MediaType
	// pathKey names the required file argument; empty for the camera.
	pathKey string
	label   string
}

var (
	shareToCamera  = shareCommand{code: CodeShareToCamera, success: ShareToCameraSuccess, mediaType: capability.MediaNone}
	shareWithPhoto = shareCommand{code: CodeShareWithPhoto, success: ShareWithPhotoSuccess, mediaType: capability.MediaPhoto, pathKey: "photoPath", label: "Photo"}
	shareWithVideo = shareCommand{code: CodeShareWithVideo, success: ShareWithVideoSuccess, mediaType: capability.MediaVideo, pathKey: "videoPath", label: "Video"}
)

func (s *Service) share(cmd shareCommand) dispatcher.HandlerFunc {
	return func(ctx context.Context, call *dispatcher.Call) (interface{}, error) {
		share, err := s.parseLegacyShare(cmd, call.Args)
		if err != nil {
			return nil, err
		}
		if err := s.send(ctx, call, share, cmd.code); err != nil {
			return nil, err
		}
		return cmd.success, nil
	}
}

// parseLegacyShare reads the shareTo*/shareWith* argument shape: "link" for
// the attachment and a sticker with nested size, offset and rotation maps.
func (s *Service) parseLegacyShare(cmd shareCommand, args dispatcher.Arguments) (*capability.Share, error) {
	if err := validate(legacyShareSchema, args); err != nil {
		return nil, argumentFailure(cmd.code, err)
	}

	share := &capability.Share{MediaType: cmd.mediaType}
	share.Caption, _ = args.OptionalString("caption")
	share.AttachmentURL, _ = args.OptionalString("link")

	if cmd.pathKey != "" {
		path, _ := args.OptionalString(cmd.pathKey)
		if path == "" {
			return nil, dispatcher.ArgumentError(cmd.code, fmt.Sprintf("%s Path not provided", cmd.label))
		}
		if err := s.requireFile(cmd.code, path); err != nil {
			return nil, err
		}
		share.Path = path
	}

	if args.Has("sticker") {
		sticker, err := s.parseLegacySticker(cmd.code, args)
		if err != nil {
			return nil, err
		}
		share.Sticker = sticker
	}
	return share, nil
}

// parseLegacySticker reads {imagePath, size:{width,height}, offset:{x,y},
// rotation:{angle}}. Geometry groups are optional; the schema has already
// checked their types.
func (s *Service) parseLegacySticker(code string, args dispatcher.Arguments) (*capability.Sticker, error) {
	m, err := args.Map("sticker")
	if err != nil {
		return nil, argumentFailure(code, err)
	}
	st := &capability.Sticker{}
	st.ImagePath, _ = m.String("imagePath")

	group := func(name string, fields map[string]*float64) {
		g, err := m.Map(name)
		if err != nil {
			return
		}
		for key, dst := range fields {
			*dst, _ = g.Number(key)
		}
	}
	group("size", map[string]*float64{"width": &st.Width, "height": &st.Height})
	group("offset", map[string]*float64{"x": &st.OffsetX, "y": &st.OffsetY})
	group("rotation", map[string]*float64{"angle": &st.Rotation})

	if err := s.requireFile(code, st.ImagePath); err != nil {
		return nil, err
	}
	return st, nil
}
