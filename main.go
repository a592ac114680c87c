package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"marmot/btree"
	"marmot/buffer"
	"marmot/common"
	"marmot/config"
	"marmot/disk"
	"marmot/logger"
)

// A small demo that wires the whole stack: config, logger, disk manager, buffer
// pool and a b+ tree index, then inserts a batch of keys and scans them back.
func main() {
	cfg, err := config.Load("marmot.toml")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	dm, _, err := disk.NewDiskManager(cfg.DBFile, log)
	if err != nil {
		log.Fatal("could not open database", zap.Error(err))
	}
	defer dm.Close()

	pool := buffer.NewBufferPoolManager(cfg.PoolSize, dm, cfg.ReplacerK, log)

	index, err := btree.NewBPlusTree[int64]("demo_index", pool, btree.Int64KeySerializer{}, btree.Int64Comparator,
		cfg.LeafMaxSize, cfg.InternalMaxSize, log)
	if err != nil {
		log.Fatal("could not open index", zap.Error(err))
	}

	for i := int64(0); i < 1000; i++ {
		index.Insert(i, common.NewRID(common.PageID(i), uint32(i)), nil)
	}
	log.Info("inserted keys", zap.Int("count", 1000), zap.Int32("root", int32(index.GetRootPageId())))

	count := 0
	for it := index.Begin(); !it.IsEnd(); it.Next() {
		count++
	}
	log.Info("scanned keys", zap.Int("count", count))

	var result []common.RID
	if index.GetValue(617, &result, nil) {
		log.Info("point lookup", zap.Int64("key", 617), zap.String("rid", result[0].String()))
	}

	pool.FlushAllPages()
	log.Info("pool stats",
		zap.Int64("hits", pool.Stats().Get("pool.hit")),
		zap.Int64("misses", pool.Stats().Get("pool.miss")),
		zap.Int64("evictions", pool.Stats().Get("pool.eviction")))
}
