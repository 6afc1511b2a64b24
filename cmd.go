package main

import "github.com/stupid-simple/dedup/config"

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Find    struct {
		Dirs []string `arg:"" optional:"" help:"directories to scan (default: current directory)"`

		Check  []string `help:"criteria that must match, comma separated: size, dirname, filename, date, dircount, filecount, firstbytes, lastbytes, hash, or the presets name, count, bytes, tree, data, full, fast, epic (default: data)" short:"c" placeholder:"CRITERIA"`
		Ignore []string `help:"criteria to leave out of the check set" short:"i" placeholder:"CRITERIA"`

		Chunk   config.SizeArgument `help:"bytes read for firstbytes and lastbytes" default:"64k"`
		Workers int                 `help:"files hashed concurrently (default: number of CPUs)"`

		NoCache    bool   `help:"do not read or write the hash cache"`
		ResetCache bool   `help:"drop all cached hashes before scanning"`
		CacheFile  string `help:"hash cache path (default: user cache dir)" type:"path"`

		MinSize     config.SizeArgument `help:"minimum file and directory size to report"`
		MaxSize     config.SizeArgument `help:"maximum file and directory size to report"`
		MinFileSize config.SizeArgument `help:"minimum file size to report"`
		MaxFileSize config.SizeArgument `help:"maximum file size to report"`
		MinDirSize  config.SizeArgument `help:"minimum directory size to report"`
		MaxDirSize  config.SizeArgument `help:"maximum directory size to report"`

		IncludeEmpty      bool `help:"include empty files and directories"`
		IncludeEmptyDirs  bool `help:"include empty directories"`
		IncludeEmptyFiles bool `help:"include empty files"`

		Exclude      []string `help:"glob patterns excluded from the scan" placeholder:"GLOB"`
		ExcludeDirs  []string `help:"glob patterns for directories excluded from the scan" placeholder:"GLOB"`
		ExcludeFiles []string `help:"glob patterns for files excluded from the scan" placeholder:"GLOB"`

		DupsCount      int `help:"smallest group size to report"`
		DupsDirsCount  int `help:"smallest directory group size to report"`
		DupsFilesCount int `help:"smallest file group size to report"`

		DirsOnly  bool `help:"only look for duplicate directories" short:"d" xor:"kind"`
		FilesOnly bool `help:"only look for duplicate files" short:"f" xor:"kind"`
		NoDirs    bool `help:"do not report or act on directory groups"`
		NoFiles   bool `help:"do not report or act on file groups"`

		NoCombine      bool `help:"list nested groups instead of folding them into parents"`
		NoCombineDirs  bool `help:"list nested directory groups"`
		NoCombineFiles bool `help:"list files already covered by directory groups"`

		FollowLinks   bool `help:"follow symbolic links while scanning"`
		RelativePaths bool `help:"print paths relative to their scan root" aliases:"rel"`
		Brief         bool `help:"print only group counts" short:"b"`

		Symlink  bool `help:"replace duplicates with symbolic links to the original" short:"S" xor:"action"`
		Hardlink bool `help:"replace duplicates with hard links to the original" short:"H" xor:"action"`
		Delete   bool `help:"delete duplicates" short:"D" xor:"action"`
		DryRun   bool `help:"don't change any files, just print the output"`
	} `cmd:"" help:"Find duplicate files and directories." default:"withargs"`
	Daemon struct {
		Config string `help:"config file path" short:"c" required:""`
		DryRun bool   `help:"don't change any files, just print the output"`
	} `cmd:"" help:"Run scheduled duplicate scans."`
}
