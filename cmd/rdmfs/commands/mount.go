package commands

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"

	"github.com/rcosdp/rdmfs/internal/config"
	"github.com/rcosdp/rdmfs/internal/fusebridge"
	"github.com/rcosdp/rdmfs/internal/inode"
	"github.com/rcosdp/rdmfs/internal/remote"
	"github.com/rcosdp/rdmfs/internal/whitelist"
)

var mountFlags struct {
	debug             bool
	debugFUSE         bool
	allowOther        bool
	username          string
	baseURL           string
	project           string
	allProjects       bool
	fileMode          string
	dirMode           string
	owner             uint32
	group             uint32
	writableWhitelist []string
}

func init() {
	f := rootCmd.Flags()
	f.BoolVar(&mountFlags.debug, "debug", false, "set the config log level to debug (no component emits debug-level output)")
	f.BoolVar(&mountFlags.debugFUSE, "debug-fuse", false, "enable go-fuse protocol debug logging")
	f.BoolVar(&mountFlags.allowOther, "allow-other", false, "allow other users to access the mount")
	f.StringVarP(&mountFlags.username, "username", "u", "", "remote account username")
	f.StringVar(&mountFlags.baseURL, "base-url", "", "remote API base URL (default https://api.osf.io/v2/)")
	f.StringVarP(&mountFlags.project, "project", "p", "", "project id to mount")
	f.BoolVar(&mountFlags.allProjects, "all-projects", false, "mount every project visible to the account, under one root")
	f.StringVar(&mountFlags.fileMode, "file-mode", "0644", "octal permission bits for files")
	f.StringVar(&mountFlags.dirMode, "dir-mode", "0755", "octal permission bits for directories")
	f.Uint32Var(&mountFlags.owner, "owner", uint32(os.Getuid()), "uid to report as file owner")
	f.Uint32Var(&mountFlags.group, "group", uint32(os.Getgid()), "gid to report as file group")
	f.StringSliceVar(&mountFlags.writableWhitelist, "writable-whitelist", nil, "glob patterns of paths writes are permitted under (default: unrestricted)")
}

func runMount(cmd *cobra.Command, args []string) error {
	mountpoint := args[0]

	if mountFlags.project != "" && mountFlags.allProjects {
		return newUsageError("--project and --all-projects are mutually exclusive")
	}
	if mountFlags.project == "" && !mountFlags.allProjects {
		return newUsageError("one of --project or --all-projects is required")
	}

	fileMode, err := strconv.ParseUint(mountFlags.fileMode, 8, 32)
	if err != nil {
		return newUsageError("invalid --file-mode %q: %v", mountFlags.fileMode, err)
	}
	dirMode, err := strconv.ParseUint(mountFlags.dirMode, 8, 32)
	if err != nil {
		return newUsageError("invalid --dir-mode %q: %v", mountFlags.dirMode, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if mountFlags.baseURL != "" {
		cfg.BaseURL = mountFlags.baseURL
	}
	if mountFlags.username != "" {
		cfg.Username = mountFlags.username
	}
	if mountFlags.debug {
		cfg.Log.Level = "debug"
	}

	client := remote.NewClient(cfg.BaseURL, cfg.Username, cfg.Password)
	listing := inode.NewListingCache(cfg.Cache.ListTTL, cfg.Cache.ListMaxEntries)
	mode := inode.Mode{AllProjects: mountFlags.allProjects, ProjectID: mountFlags.project}
	registry := inode.NewRegistry(inode.RemoteAdapter{Client: client}, listing, cfg.Cache.AttrTTL, mode)
	wl := whitelist.New(mountFlags.writableWhitelist)

	srv := fusebridge.NewServer(registry, client, wl, mountFlags.owner, mountFlags.group, uint32(fileMode), uint32(dirMode))

	server, err := fs.Mount(mountpoint, srv.Root(), &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: mountFlags.allowOther,
			Debug:      mountFlags.debugFUSE,
			FsName:     "rdmfs",
			Name:       "rdmfs",
		},
	})
	if err != nil {
		return fmt.Errorf("mount %s: %w", mountpoint, err)
	}

	log.Printf("rdmfs mounted at %s", mountpoint)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("unmounting %s", mountpoint)
		_ = server.Unmount()
	}()

	server.Wait()
	listing.Stop()
	return nil
}
