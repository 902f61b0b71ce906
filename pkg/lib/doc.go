// Package lib provides a Go SDK for managing and launching modpack instances
// programmatically.
//
// This package allows applications to register instances, decide their launch
// pipeline and run it without shelling out to the packlaunch CLI binary.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{
//	    VersionQueryURL: "https://modpacks.example.com",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	inst, err := client.AddInstance(ctx, lib.AddInstanceOpts{
//	    Name:      "skyblock",
//	    ModpackID: "mp-1",
//	})
//
//	res, err := client.Launch(ctx, "skyblock", &lib.LaunchOpts{
//	    OnProgress: func(p lib.TaskProgress) {
//	        fmt.Printf("%3.0f%% %s\n", p.Progress, p.Description)
//	    },
//	})
//
// # Launch pipelines
//
// Before launching, every instance goes through one of two pipelines:
//
//   - [FlowFull]: the instance follows the latest modpack version and the
//     installed version is outdated or unknown. The whole installation runs.
//   - [FlowLightweight]: the instance is pinned, up to date or the latest version
//     could not be queried. Only the local files are validated.
//
// [Client.DecideLaunch] returns the decision without running anything.
//
// # Processing
//
// With a realtime hub configured, [Client.WatchProcessing] follows the server side
// processing of a modpack version until it completes or fails.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Instance does not exist.
//   - [ErrAlreadyExists]: Instance with the same name already exists.
//   - [ErrNotValid]: Invalid input.
//   - [ErrOperationFailed]: The launch pipeline or the processing ended with an error.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The underlying
// storage uses SQLite with WAL mode, and pipelines are created per-operation.
package lib
