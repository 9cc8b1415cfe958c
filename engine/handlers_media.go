package engine

import "context"

type importMediaArgs struct {
	FilePath string `json:"file_path" jsonschema:"description=Absolute path of the media file to import"`
}

// mediaImport passes a single-element batch. Import is all-or-nothing
// from this server's point of view: an empty result is a failure.
func (e *Engine) mediaImport(ctx context.Context, sctx Context, args importMediaArgs) Outcome {
	if args.FilePath == "" {
		return fail("Missing required argument: file_path")
	}
	if sctx.MediaPool == nil {
		return fail("No media pool available")
	}
	clips, err := sctx.MediaPool.ImportMedia([]string{args.FilePath})
	if err != nil {
		return hostFailure(err)
	}
	if len(clips) == 0 {
		return fail("Failed to import media: %s", args.FilePath)
	}
	return succeed("Imported media: %s", args.FilePath)
}

type createBinArgs struct {
	Name string `json:"name" jsonschema:"description=Bin name"`
}

// mediaCreateBin does not deduplicate; calling twice with the same name
// creates two bins if the host allows it.
func (e *Engine) mediaCreateBin(ctx context.Context, sctx Context, args createBinArgs) Outcome {
	if args.Name == "" {
		return fail("Missing required argument: name")
	}
	if sctx.MediaPool == nil {
		return fail("No media pool available")
	}
	bin, err := sctx.MediaPool.CreateBin(args.Name)
	if err != nil {
		return hostFailure(err)
	}
	if bin == nil {
		return fail("Failed to create bin '%s'", args.Name)
	}
	return succeed("Created bin '%s'", args.Name)
}
