package nodeid

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/rs/zerolog"
)

// ErrClockRollback is returned when the local clock is behind the last
// time this instance reported to the registry.
var ErrClockRollback = errors.New("nodeid: clock moved backwards")

// Conn is the subset of *zk.Conn used by the registry
type Conn interface {
	Exists(path string) (bool, *zk.Stat, error)
	Get(path string) ([]byte, *zk.Stat, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Close()
}

// ZKConfig configures a ZooKeeper-backed node registry
type ZKConfig struct {
	Servers        []string
	Root           string // default /binuuid
	Service        string
	Instance       string // stable per process, e.g. host:port
	CacheDir       string // local fallback when the instance node is missing
	SessionTimeout time.Duration
}

// NodeInfo is stored in the instance znode and the local cache file
type NodeInfo struct {
	WorkerID   uint32 `json:"worker_id"`
	CreateTime int64  `json:"create_time"` // Unix milliseconds
	LastTime   int64  `json:"last_time"`   // Unix milliseconds
}

// ZooKeeper hands out cluster-unique node identifiers. Each instance
// registers under /<root>/<service>/instances/<instance>; new instances
// draw a worker id from a sequential znode.
type ZooKeeper struct {
	conn   Conn
	cfg    ZKConfig
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	info *NodeInfo
}

// DialZooKeeper connects to cfg.Servers and returns a registry
func DialZooKeeper(cfg ZKConfig, logger zerolog.Logger) (*ZooKeeper, error) {
	timeout := cfg.SessionTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	c, _, err := zk.Connect(cfg.Servers, timeout)
	if err != nil {
		return nil, fmt.Errorf("nodeid: connect zookeeper: %w", err)
	}
	return NewZooKeeper(c, cfg, logger), nil
}

// NewZooKeeper wraps an existing connection
func NewZooKeeper(conn Conn, cfg ZKConfig, logger zerolog.Logger) *ZooKeeper {
	if cfg.Root == "" {
		cfg.Root = "/binuuid"
	}
	return &ZooKeeper{conn: conn, cfg: cfg, logger: logger, now: time.Now}
}

// NodeID implements Source. The first call registers the instance.
func (z *ZooKeeper) NodeID(ctx context.Context) ([6]byte, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.info == nil {
		if err := ctx.Err(); err != nil {
			return [6]byte{}, err
		}
		info, err := z.registerOrRecover()
		if err != nil {
			return [6]byte{}, err
		}
		z.info = info
	}
	return workerNode(z.info.WorkerID), nil
}

// Heartbeat reports the current time to the registry every interval until
// ctx is done.
func (z *ZooKeeper) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := z.beat(); err != nil {
				z.logger.Warn().Err(err).Str("instance", z.cfg.Instance).Msg("node heartbeat failed")
			}
		}
	}
}

// Close closes the underlying connection
func (z *ZooKeeper) Close() {
	z.conn.Close()
}

func (z *ZooKeeper) beat() error {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.info == nil {
		return nil
	}
	now := z.now().UnixMilli()
	if now < z.info.LastTime {
		return fmt.Errorf("%w: %d < %d", ErrClockRollback, now, z.info.LastTime)
	}
	z.info.LastTime = now

	data, err := json.Marshal(z.info)
	if err != nil {
		return err
	}
	if _, err := z.conn.Set(z.instancePath(), data, -1); err != nil {
		return fmt.Errorf("nodeid: update %s: %w", z.instancePath(), err)
	}
	z.saveLocalCache(*z.info)
	return nil
}

func (z *ZooKeeper) registerOrRecover() (*NodeInfo, error) {
	servicePath := z.servicePath()
	for _, p := range []string{servicePath + "/instances", servicePath + "/workers"} {
		if err := z.ensurePath(p); err != nil {
			return nil, err
		}
	}

	key := z.instancePath()
	now := z.now().UnixMilli()

	exists, _, err := z.conn.Exists(key)
	if err != nil {
		return nil, fmt.Errorf("nodeid: check %s: %w", key, err)
	}

	var info NodeInfo
	switch {
	case exists:
		data, _, err := z.conn.Get(key)
		if err != nil {
			return nil, fmt.Errorf("nodeid: read %s: %w", key, err)
		}
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("nodeid: decode %s: %w", key, err)
		}
		z.logger.Info().Uint32("worker_id", info.WorkerID).Str("source", "zookeeper").Msg("recovered node")
	default:
		if cached, err := z.loadLocalCache(); err == nil {
			info = cached
			z.logger.Info().Uint32("worker_id", info.WorkerID).Str("source", "cache").Msg("recovered node")
		} else {
			id, err := z.allocateWorker()
			if err != nil {
				return nil, err
			}
			info = NodeInfo{WorkerID: id, CreateTime: now}
			z.logger.Info().Uint32("worker_id", id).Msg("allocated node")
		}
	}

	if now < info.LastTime {
		return nil, fmt.Errorf("%w: %d < %d", ErrClockRollback, now, info.LastTime)
	}
	info.LastTime = now

	data, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	if exists {
		_, err = z.conn.Set(key, data, -1)
	} else {
		_, err = z.conn.Create(key, data, 0, zk.WorldACL(zk.PermAll))
	}
	if err != nil {
		return nil, fmt.Errorf("nodeid: register %s: %w", key, err)
	}

	z.saveLocalCache(info)
	return &info, nil
}

// allocateWorker draws the next id from a sequential znode
func (z *ZooKeeper) allocateWorker() (uint32, error) {
	created, err := z.conn.Create(z.servicePath()+"/workers/w-", nil, zk.FlagSequence, zk.WorldACL(zk.PermAll))
	if err != nil {
		return 0, fmt.Errorf("nodeid: allocate worker: %w", err)
	}
	seq := created[strings.LastIndex(created, "-")+1:]
	id, err := strconv.ParseUint(seq, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("nodeid: unexpected sequential node %q: %w", created, err)
	}
	return uint32(id), nil
}

// ensurePath creates every missing component of p
func (z *ZooKeeper) ensurePath(p string) error {
	current := ""
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		current += "/" + part
		exists, _, err := z.conn.Exists(current)
		if err != nil {
			return fmt.Errorf("nodeid: check %s: %w", current, err)
		}
		if exists {
			continue
		}
		if _, err := z.conn.Create(current, nil, 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return fmt.Errorf("nodeid: create %s: %w", current, err)
		}
	}
	return nil
}

func (z *ZooKeeper) servicePath() string {
	return path.Join(z.cfg.Root, z.cfg.Service)
}

func (z *ZooKeeper) instancePath() string {
	return path.Join(z.servicePath(), "instances", z.cfg.Instance)
}

func (z *ZooKeeper) cacheFile() string {
	name := strings.NewReplacer("/", "_", ":", "_").Replace(z.cfg.Service + "_" + z.cfg.Instance)
	return filepath.Join(z.cfg.CacheDir, ".binuuid_node_"+name)
}

func (z *ZooKeeper) saveLocalCache(info NodeInfo) {
	if z.cfg.CacheDir == "" {
		return
	}
	data, _ := json.Marshal(info)
	if err := os.WriteFile(z.cacheFile(), data, 0o644); err != nil {
		z.logger.Warn().Err(err).Msg("write node cache")
	}
}

func (z *ZooKeeper) loadLocalCache() (NodeInfo, error) {
	var info NodeInfo
	if z.cfg.CacheDir == "" {
		return info, os.ErrNotExist
	}
	data, err := os.ReadFile(z.cacheFile())
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

// workerNode places the worker id in the low 32 bits of a node with the
// multicast and locally administered bits set, so it can never equal a
// real interface address.
func workerNode(id uint32) [6]byte {
	var node [6]byte
	node[0] = 0x03
	binary.BigEndian.PutUint32(node[2:], id)
	return node
}
