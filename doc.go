// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/ndspack

/*
Package ndspack unpacks the nested container formats of Nintendo DS game data
into a plain directory tree and rebuilds the original bytes from that tree and a
recorded metadata document.

Supported containers:
  - P2 segmented archives (512-byte block aligned, optional 8-byte names,
    per-subfile LZ flag);
  - HPAK, PK2D, and PKAC bucket archives (eight offset/length tables; PKAC keeps
    a name table in bucket 0 and payloads in bucket 1);
  - LZ10/LZ11 compressed streams.

Everything else, including known asset kinds such as NSBMD or NCLR, is stored
verbatim.

# Extracting

Unpack a directory tree and write the metadata document:

	res, err := ndspack.ExtractDir(ctx, "data/", "unpacked/", "unpacked.yaml", ndspack.ExtractOptions{
	    MaxWorkers: 4,
	})
	if err != nil {
	    return err
	}
	_ = res.Containers

Directory discovery runs on the calling goroutine. Containers are unpacked by
a worker pool; containers found inside containers are queued back to the same
pool. A failed container is reported in ExtractResult.Failures while the rest
of the tree keeps unpacking. With FallbackOpaque, undecodable containers are
stored as plain files instead.

Unpack rules limit which containers are opened (github.com/woozymasta/pathrules):

	res, err := ndspack.ExtractDir(ctx, "data/", "unpacked/", "unpacked.yaml", ndspack.ExtractOptions{
	    Unpack: []pathrules.Rule{
	        {Action: pathrules.ActionExclude, Pattern: "sound/**"},
	    },
	})

# Packing

Rebuild the original tree from the unpacked tree and its metadata:

	res, err := ndspack.PackDir(ctx, "unpacked.yaml", "unpacked/", "rebuilt/", ndspack.PackOptions{})
	if err != nil {
	    return err
	}
	_ = res.Files

Verify compares a rebuilt tree with the original without writing it:

	res, err := ndspack.VerifyDir(ctx, "data/", "unpacked/", "unpacked.yaml", ndspack.PackOptions{})
	if err != nil {
	    return err
	}
	if !res.OK() {
	    // res.Mismatches, res.Missing, res.Extra
	}

# Listing

ListMembers describes direct container members without unpacking them:

	info, err := ndspack.ListMembers("data/fld/a.p2", ndspack.ListOptions{SkipEmpty: true})
	if err != nil {
	    return err
	}
	for _, m := range info.Members {
	    fmt.Println(m.Name, m.Type, m.Size)
	}

# Metadata

The metadata document is YAML, or JSON when its path ends in ".json". Each
node is a single-key mapping naming its kind: directory, p2, bucket, lz, file,
empty, or unresolved. Documents of incomplete trees are never written.

# Codecs

Container codecs are usable on their own:

	archive, err := ndspack.DecodeSegmentedArchive(buf)
	if err != nil {
	    return err
	}
	out, err := ndspack.EncodeSegmentedArchive(archive) // out == buf
*/
package ndspack
