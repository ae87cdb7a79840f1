// Package registry implements the file-based instance registry used to
// discover running hosts.
//
// Every host writes one descriptor file, houdini_<port>.json, into a single
// per-user directory right after it binds its port, and removes it on
// graceful shutdown. Clients scan the directory to find live hosts; any
// descriptor whose process has died is deleted during the scan.
//
// # Usage
//
//	store := registry.NewStore(registry.DefaultDir())
//
//	// host side
//	err := store.Publish(ctx, registry.Descriptor{Port: 9877, PID: os.Getpid(), StartedAt: time.Now()})
//	defer store.Unpublish(ctx, 9877)
//
//	// client side, newest first
//	live, err := store.ListLive(ctx)
//
// # Concurrency
//
// The directory is shared between processes. Writers replace files with a
// rename so readers never see a torn descriptor; readers skip any file that
// fails to parse and try again on the next scan.
//
// # File Format
//
// Descriptors use snake_case keys for compatibility with hosts written
// against earlier versions of the addon:
//
//	{
//	  "port": 9877,
//	  "pid": 4242,
//	  "started_at": "2025-01-02T15:04:05.123456Z",
//	  "hip_file": "/proj/shot.hip",
//	  "hip_name": "shot.hip",
//	  "houdini_version": "20.5.278",
//	  "hostname": "localhost"
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package registry
