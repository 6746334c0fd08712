package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hupe1980/indexlib/cleaner"
	"github.com/hupe1980/indexlib/fence"
	"github.com/hupe1980/indexlib/recovery"
	"github.com/hupe1980/indexlib/version"
)

type versionsCommand struct{}

func (c *versionsCommand) Execute([]string) error {
	ctx := context.Background()
	root, err := openRoot(ctx)
	if err != nil {
		return err
	}

	ids, err := version.ListVersions(ctx, root)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSEGMENTS\tLAST SEGMENT\tFENCE\tCOMMITTED")
	for _, id := range ids {
		v, err := version.Load(ctx, root, id)
		if err != nil {
			fmt.Fprintf(w, "%d\t-\t-\t-\t%v\n", id, err)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
			v.ID(), v.SegmentCount(), v.LastSegmentID(), v.FenceName(), formatMicros(v.CommitTime()))
	}
	return w.Flush()
}

type showCommand struct {
	Args struct {
		Version string `positional-arg-name:"version" description:"version id, defaults to the latest"`
	} `positional-args:"yes"`
}

func (c *showCommand) Execute([]string) error {
	ctx := context.Background()
	root, err := openRoot(ctx)
	if err != nil {
		return err
	}

	var v *version.Version
	if c.Args.Version != "" {
		id, perr := strconv.ParseInt(c.Args.Version, 10, 32)
		if perr != nil {
			return fmt.Errorf("version %q: %w", c.Args.Version, perr)
		}
		v, err = version.Load(ctx, root, version.VersionID(id))
	} else {
		v, err = version.LoadLatest(ctx, root)
	}
	if err != nil {
		return err
	}
	if !v.IsValid() {
		return fmt.Errorf("table has no versions")
	}

	s, err := v.ToString()
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

type recoverCommand struct {
	Mode          string `long:"mode" choice:"segment" choice:"version" default:"segment" description:"recovery granularity"`
	Fence         string `long:"fence" description:"recover the named fence instead of the global root"`
	RemoveUseless bool   `long:"remove-useless" description:"also delete segments not in the recovered version"`
}

func (c *recoverCommand) Execute([]string) error {
	ctx := context.Background()
	root, err := openRoot(ctx)
	if err != nil {
		return err
	}

	mode := recovery.ModeSegment
	if c.Mode == "version" {
		mode = recovery.ModeVersion
	}

	optFns := []recovery.Option{recovery.WithLogger(logger().Logger)}
	dir := root
	if c.Fence != "" {
		dir = root.Sub(fence.DirName(c.Fence))
		optFns = append(optFns, recovery.WithBranch(c.Fence))
	}
	strategy := recovery.New(mode, optFns...)

	base, err := version.LoadLatest(ctx, root)
	if err != nil {
		return err
	}
	res, err := strategy.RecoverFrom(ctx, dir, base)
	if err != nil {
		return err
	}
	fmt.Printf("version %d: adopted %v, removed %v\n", res.Version.ID(), res.Adopted, res.Removed)

	if c.RemoveUseless && res.Version.IsValid() {
		keep := []*version.Version{res.Version}
		if c.Fence != "" {
			committed, err := version.LoadAll(ctx, dir)
			if err != nil {
				return err
			}
			keep = append(keep, committed...)
		}
		removed, err := strategy.RemoveUselessSegments(ctx, dir, keep...)
		if err != nil {
			return err
		}
		fmt.Printf("removed useless segments %v\n", removed)
	}
	return nil
}

type vacuumCommand struct {
	Keep         int           `long:"keep" default:"1" description:"number of recent versions to keep"`
	KeepDuration time.Duration `long:"keep-duration" description:"keep versions committed within this duration"`
	RemoveFences bool          `long:"remove-fences" description:"delete fences no kept version references"`
	Protect      []string      `long:"protect" description:"fence to keep when removing fences (repeatable)"`
}

func (c *vacuumCommand) Execute([]string) error {
	ctx := context.Background()
	root, err := openRoot(ctx)
	if err != nil {
		return err
	}

	optFns := []cleaner.Option{cleaner.WithLogger(logger().Logger)}
	if c.RemoveFences {
		optFns = append(optFns, cleaner.WithRemoveFences(c.Protect...))
	}

	res, err := cleaner.New(cleaner.RetentionPolicy{
		KeepVersions: c.Keep,
		KeepDuration: c.KeepDuration,
	}, optFns...).Vacuum(ctx, root)
	if err != nil {
		return err
	}

	segs := make([]string, 0, len(res.RemovedSegments))
	for _, ref := range res.RemovedSegments {
		if ref.Branch == "" {
			segs = append(segs, fmt.Sprint(ref.ID))
			continue
		}
		segs = append(segs, fmt.Sprintf("%s/%d", ref.Branch, ref.ID))
	}
	fmt.Printf("kept versions %v\nremoved versions %v\nremoved segments [%s]\nremoved fences %v\n",
		res.KeptVersions, res.RemovedVersions, strings.Join(segs, " "), res.RemovedFences)
	return nil
}

func formatMicros(us int64) string {
	if us == 0 {
		return "-"
	}
	return time.UnixMicro(us).UTC().Format(time.RFC3339)
}
