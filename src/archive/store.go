package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Store 一个直播间所有会话目录的视图：<output>/<platform>/<room>/<live_id>/
type Store struct {
	root   string
	opts   []Option
	logger *logrus.Entry
}

func NewStore(outputPath, platform, roomID string, opts ...Option) *Store {
	return &Store{
		root: filepath.Join(outputPath, platform, roomID),
		opts: opts,
		logger: logrus.WithFields(logrus.Fields{
			"platform": platform,
			"room":     roomID,
		}),
	}
}

// ValidLiveID live id 只能是会话目录名，不能包含路径
func ValidLiveID(liveID string) bool {
	return liveID != "" && liveID != "." && liveID != ".." && filepath.Base(liveID) == liveID
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) Dir(liveID string) string {
	return filepath.Join(s.root, liveID)
}

func (s *Store) Create(meta Meta) (*Journal, error) {
	return Create(s.Dir(meta.LiveID), meta, s.opts...)
}

func (s *Store) OpenSession(liveID string) (*Journal, error) {
	if !ValidLiveID(liveID) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, liveID)
	}
	return Open(s.Dir(liveID), s.opts...)
}

// List 按 live id 从新到旧返回全部会话，无法打开的目录会被跳过
func (s *Store) List() ([]*SessionInfo, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return []*SessionInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	infos := make([]*SessionInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		j, err := s.OpenSession(e.Name())
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				s.logger.WithError(err).WithField("live_id", e.Name()).Warn("无法读取会话")
			}
			continue
		}
		info, err := j.Info()
		j.Release()
		if err != nil {
			s.logger.WithError(err).WithField("live_id", e.Name()).Warn("无法读取会话信息")
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, k int) bool {
		a, _ := strconv.ParseInt(infos[i].LiveID, 10, 64)
		b, _ := strconv.ParseInt(infos[k].LiveID, 10, 64)
		if a != b {
			return a > b
		}
		return infos[i].LiveID > infos[k].LiveID
	})
	return infos, nil
}

// Remove 删除整个会话目录
func (s *Store) Remove(liveID string) error {
	if !ValidLiveID(liveID) {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, liveID)
	}
	dir := s.Dir(liveID)
	if _, err := os.Stat(filepath.Join(dir, JournalFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, liveID)
	}
	return os.RemoveAll(dir)
}

// RecoverUnclosed 关闭上次进程退出时仍未结束的会话，结束时间取最后一个分片的时间戳，
// 没有分片时取开始时间。返回被关闭的会话。
func (s *Store) RecoverUnclosed(reason string) ([]*SessionInfo, error) {
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	recovered := make([]*SessionInfo, 0)
	for _, info := range infos {
		if info.Closed() {
			continue
		}
		closed, err := s.closeStale(info.LiveID, reason)
		if err != nil {
			s.logger.WithError(err).WithField("live_id", info.LiveID).Warn("关闭中断的会话失败")
			continue
		}
		recovered = append(recovered, closed)
	}
	return recovered, nil
}

func (s *Store) closeStale(liveID, reason string) (*SessionInfo, error) {
	j, err := s.OpenSession(liveID)
	if err != nil {
		return nil, err
	}
	defer j.Release()
	info, err := j.Info()
	if err != nil {
		return nil, err
	}
	end := info.StartTime
	if last := j.LastSegment(); last != nil {
		end = last.Timestamp
	}
	if err := j.Close(end, reason); err != nil {
		return nil, err
	}
	return j.Info()
}

// TotalLength 所有会话的时长之和（秒）
func (s *Store) TotalLength() (float64, error) {
	infos, err := s.List()
	if err != nil {
		return 0, err
	}
	var total float64
	for _, info := range infos {
		total += info.Length
	}
	return total, nil
}
