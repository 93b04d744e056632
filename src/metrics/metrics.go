// Package metrics 录制相关的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shadowreplay"

var (
	SegmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_total",
		Help:      "已写入的分片数",
	}, []string{"platform"})

	SegmentBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segment_bytes_total",
		Help:      "已写入的分片字节数",
	}, []string{"platform"})

	SegmentFetchRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segment_fetch_retries_total",
		Help:      "分片下载失败后的重试次数",
	}, []string{"platform"})

	DanmuTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "danmu_total",
		Help:      "收到的弹幕数",
	}, []string{"platform"})

	SessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "结束的录制场次，按结束原因区分",
	}, []string{"platform", "reason"})

	ClipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clips_total",
		Help:      "切片次数，按结果区分",
	}, []string{"platform", "result"})
)

var recordersDesc = prometheus.NewDesc(
	prometheus.BuildFQName(namespace, "", "recorders"),
	"当前注册的录制器数量",
	[]string{"platform"}, nil,
)

// Collectors 返回全部计数器，由调用方注册
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SegmentsTotal,
		SegmentBytesTotal,
		SegmentFetchRetriesTotal,
		DanmuTotal,
		SessionsTotal,
		ClipsTotal,
	}
}

// recorderCollector 在采集时读取各平台的录制器数量
type recorderCollector struct {
	count func() map[string]int
}

// NewRecorderCollector count 返回 平台 -> 录制器数量
func NewRecorderCollector(count func() map[string]int) prometheus.Collector {
	return &recorderCollector{count: count}
}

func (c *recorderCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- recordersDesc
}

func (c *recorderCollector) Collect(ch chan<- prometheus.Metric) {
	for platform, n := range c.count() {
		ch <- prometheus.MustNewConstMetric(recordersDesc, prometheus.GaugeValue, float64(n), platform)
	}
}
