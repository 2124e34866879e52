// Command pkwstore is a minimal client for the puncturable key-wrapping
// cloud storage engine: it maintains a local PPRF key and lookup table,
// and drives put/get/shred/rotate-keys/clean/ls against a storage
// backend.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	_ "github.com/younisk/forward-secure-cloud-storage/internal/mlockall"

	"github.com/younisk/forward-secure-cloud-storage/cloud"
	"github.com/younisk/forward-secure-cloud-storage/idprovider"
	"github.com/younisk/forward-secure-cloud-storage/internal/logger"
	"github.com/younisk/forward-secure-cloud-storage/internal/settings"
	"github.com/younisk/forward-secure-cloud-storage/internal/term"
	"github.com/younisk/forward-secure-cloud-storage/operator"
	"github.com/younisk/forward-secure-cloud-storage/pkw"
)

const usage = `Usage:
    pkwstore [--settings DIR] init
    pkwstore [--settings DIR] put LOCAL_PATH CLOUD_PATH
    pkwstore [--settings DIR] get CLOUD_PATH
    pkwstore [--settings DIR] shred CLOUD_PATH
    pkwstore [--settings DIR] rotate-keys
    pkwstore [--settings DIR] clean
    pkwstore [--settings DIR] ls

--settings defaults to .cli in the current directory. The backing store is
a directory of cloud objects at --settings/store.`

var log = logger.Global

func main() {
	settingsFlag := flag.String("settings", settings.DefaultDir, "settings directory")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	dir := settings.New(*settingsFlag)
	comm, err := cloud.NewLocalCommunicator(dir.Root + "/store")
	if err != nil {
		log.Errorf("opening store: %v", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "init":
		runInit(dir)
	case "put":
		if len(args) != 2 {
			log.Errorf("put requires LOCAL_PATH and CLOUD_PATH")
		}
		runPut(dir, comm, args[0], args[1])
	case "get":
		if len(args) != 1 {
			log.Errorf("get requires CLOUD_PATH")
		}
		runGet(dir, comm, args[0])
	case "shred":
		if len(args) != 1 {
			log.Errorf("shred requires CLOUD_PATH")
		}
		runShred(dir, comm, args[0])
	case "rotate-keys":
		runRotateKeys(dir, comm)
	case "clean":
		runClean(dir, comm)
	case "ls":
		runLs(dir, comm)
	default:
		log.Errorf("unknown command %q", cmd)
	}
}

func passphrase(confirm bool) []byte {
	pass, err := term.ReadSecret("Enter passphrase:")
	if err != nil {
		log.Errorf("reading passphrase: %v", err)
	}
	if confirm {
		again, err := term.ReadSecret("Confirm passphrase:")
		if err != nil {
			log.Errorf("reading passphrase: %v", err)
		}
		if string(again) != string(pass) {
			log.Errorf("passphrases did not match")
		}
	}
	return pass
}

func runInit(dir settings.Dir) {
	if dir.Exists() {
		log.Errorf("settings already exist at %s", dir.Root)
	}
	if err := dir.EnsureDir(); err != nil {
		log.Errorf("creating settings directory: %v", err)
	}

	p, err := pkw.NewFresh(settings.DefaultKeyLen, settings.DefaultTagLen)
	if err != nil {
		log.Errorf("generating key: %v", err)
	}
	pass := passphrase(true)
	sealed, err := p.SerializeAndEncryptKey(pass)
	if err != nil {
		log.Errorf("sealing key: %v", err)
	}
	if err := dir.WriteKey(sealed); err != nil {
		log.Errorf("writing key: %v", err)
	}
	if err := dir.WriteProperties(operator.EncodeProperties(settings.DefaultKeyLen, settings.DefaultTagLen)); err != nil {
		log.Errorf("writing properties: %v", err)
	}
	fmt.Println("Initialized settings at", dir.Root)
}

func loadOperator(dir settings.Dir, comm cloud.Communicator) *operator.Operator {
	if !dir.Exists() {
		log.Errorf("no settings found at %s, run init first", dir.Root)
	}
	sealed, err := dir.ReadKey()
	if err != nil {
		log.Errorf("reading key: %v", err)
	}
	pass := passphrase(false)
	p, err := pkw.FromSerializedAndEncrypted(sealed, pass)
	if err != nil {
		log.Errorf("unsealing key: %v", err)
	}

	propsData, err := dir.ReadProperties()
	if err != nil {
		log.Errorf("reading properties: %v", err)
	}
	_, tagLen, err := operator.DecodeProperties(propsData)
	if err != nil {
		log.Errorf("parsing properties: %v", err)
	}

	ratchetKey, err := dir.ReadOrInitRatchetKey(func(n int) ([]byte, error) {
		return operator.NewRatchetKey(n)
	}, p.KeyLen()/8)
	if err != nil {
		log.Errorf("loading ratchet key: %v", err)
	}

	table := map[string]idprovider.Id{}
	if blob, err := comm.ReadLookupTableFromCloud(); err == nil {
		if decoded, err := operator.DecodeLookupTable(blob, tagLen, ratchetKey); err == nil {
			table = decoded
		}
	}
	ids, err := idprovider.RestoreFlatProvider(tagLen, table)
	if err != nil {
		log.Errorf("restoring lookup table: %v", err)
	}

	return operator.New(ids, p, comm)
}

func persistOperator(dir settings.Dir, op *operator.Operator, comm cloud.Communicator) {
	paths, err := op.ListFiles()
	if err != nil {
		log.Errorf("listing files: %v", err)
	}
	table := map[string]idprovider.Id{}
	for _, path := range paths {
		id, err := op.GetID(path)
		if err != nil {
			log.Errorf("looking up %s: %v", path, err)
		}
		table[path] = id
	}

	ratchetKey, err := dir.ReadOrInitRatchetKey(func(n int) ([]byte, error) {
		return operator.NewRatchetKey(n)
	}, op.KeyLen()/8)
	if err != nil {
		log.Errorf("loading ratchet key: %v", err)
	}
	next, err := operator.RatchetNextKey(ratchetKey)
	if err != nil {
		log.Errorf("ratcheting key: %v", err)
	}
	blob, err := operator.EncodeLookupTable(table, op.TagLen(), next)
	if err != nil {
		log.Errorf("encoding lookup table: %v", err)
	}
	if err := comm.WriteLookupTableToCloud(blob); err != nil {
		log.Errorf("writing lookup table: %v", err)
	}
	if err := dir.WriteRatchetKey(next); err != nil {
		log.Errorf("persisting ratchet key: %v", err)
	}
}

func runPut(dir settings.Dir, comm cloud.Communicator, localPath, cloudPath string) {
	op := loadOperator(dir, comm)
	content, err := os.ReadFile(localPath)
	if err != nil {
		log.Errorf("reading %s: %v", localPath, err)
	}
	if _, err := op.Put(cloudPath, content); err != nil {
		log.Errorf("put: %v", err)
	}
	persistOperator(dir, op, comm)
}

func runGet(dir settings.Dir, comm cloud.Communicator, cloudPath string) {
	op := loadOperator(dir, comm)
	id, err := op.GetID(cloudPath)
	if err != nil {
		log.Errorf("looking up %s: %v", cloudPath, err)
	}
	content, err := op.Get(id)
	if err != nil {
		log.Errorf("get: %v", err)
	}
	io.Copy(os.Stdout, bytes.NewReader(content))
}

func runShred(dir settings.Dir, comm cloud.Communicator, cloudPath string) {
	op := loadOperator(dir, comm)
	id, err := op.GetID(cloudPath)
	if err != nil {
		log.Errorf("looking up %s: %v", cloudPath, err)
	}
	if err := op.Shred(id); err != nil {
		log.Errorf("shred: %v", err)
	}
	persistOperator(dir, op, comm)
}

func runRotateKeys(dir settings.Dir, comm cloud.Communicator) {
	op := loadOperator(dir, comm)
	fresh, err := pkw.NewFresh(op.KeyLen(), op.TagLen())
	if err != nil {
		log.Errorf("generating fresh key: %v", err)
	}
	n, err := op.RotateKeys(fresh)
	if err != nil {
		log.Errorf("rotate-keys: %v", err)
	}
	pass := passphrase(true)
	sealed, err := fresh.SerializeAndEncryptKey(pass)
	if err != nil {
		log.Errorf("sealing rotated key: %v", err)
	}
	if err := dir.WriteKey(sealed); err != nil {
		log.Errorf("writing rotated key: %v", err)
	}
	persistOperator(dir, op, comm)
	fmt.Println("Rotated", strconv.Itoa(n), "wrapped keys.")
}

func runClean(dir settings.Dir, comm cloud.Communicator) {
	op := loadOperator(dir, comm)
	n, err := op.Clean()
	if err != nil {
		log.Errorf("clean: %v", err)
	}
	fmt.Println("Removed", strconv.Itoa(n), "orphaned objects.")
}

func runLs(dir settings.Dir, comm cloud.Communicator) {
	op := loadOperator(dir, comm)
	files, err := op.ListFiles()
	if err != nil {
		log.Errorf("ls: %v", err)
	}
	if len(files) == 0 {
		fmt.Println("No files found.")
		return
	}
	for _, f := range files {
		fmt.Println(f)
	}
}
