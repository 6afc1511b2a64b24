package criteria

// Aspect is a single atomic comparison criterion. The numeric order is the
// cost order: grouping evaluates cheap aspects first so that expensive ones
// only run on entries that still have potential duplicates.
type Aspect uint8

const (
	Size Aspect = iota // file length in bytes
	DirCount
	FileCount
	DirName
	FileName
	Date
	FirstBytes
	LastBytes
	Hash

	numAspects
)

var aspectNames = [numAspects]string{
	Size:       "size",
	DirCount:   "dircount",
	FileCount:  "filecount",
	DirName:    "dirname",
	FileName:   "filename",
	Date:       "date",
	FirstBytes: "firstbytes",
	LastBytes:  "lastbytes",
	Hash:       "hash",
}

func (a Aspect) String() string {
	if a >= numAspects {
		return "unknown"
	}
	return aspectNames[a]
}

// AppliesToFiles reports whether the aspect compares regular files.
func (a Aspect) AppliesToFiles() bool {
	switch a {
	case Size, FileName, Date, FirstBytes, LastBytes, Hash:
		return true
	}
	return false
}

// AppliesToDirs reports whether the aspect compares directories directly.
// Directory size is deliberately absent: two directories match on size only
// when their contents pair up, which falls out of the structural comparison.
func (a Aspect) AppliesToDirs() bool {
	switch a {
	case DirName, DirCount, FileCount, Date:
		return true
	}
	return false
}
