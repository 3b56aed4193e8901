package resolver

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
)

// 行语法与 map.txt 保持一致：
//
//	/alias = files/a.txt
//	/split = files/a.txt'10,files/b.txt'30
const (
	keyValueDelim = "="
	targetDelim   = ","
	weightDelim   = "'"
)

// drawWeight 抽取 [0,total) 的随机数，测试中可替换为确定性实现。
var drawWeight = rand.Int63n

// Target 是一个候选物理路径及其权重，单一目标条目的权重恒为 0。
type Target struct {
	Path   string
	Weight int64
}

type pathEntry struct {
	single  string
	targets []Target
	total   int64
}

// Table 保存请求键到物理路径的只读映射。
type Table struct {
	entries map[string]pathEntry
}

// ParseError 指出映射表中某一行的语法问题。
type ParseError struct {
	File   string
	Line   int
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Load 读取并解析映射文件，文件不存在时原样返回 os.Open 的错误，
// 调用方可用 errors.Is(err, fs.ErrNotExist) 判断后跳过映射。
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse 逐行解析映射表，name 仅用于错误信息。任何一行缺少分隔符、
// 键或路径为空、权重非法、权重和为 0，都会返回带行号的 ParseError。
func Parse(r io.Reader, name string) (*Table, error) {
	entries := make(map[string]pathEntry)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()

		key, value, found := strings.Cut(raw, keyValueDelim)
		if !found {
			return nil, ParseError{File: name, Line: line, Reason: fmt.Sprintf("缺少分隔符 %q", keyValueDelim)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, ParseError{File: name, Line: line, Reason: "键不能为空"}
		}
		if value == "" {
			return nil, ParseError{File: name, Line: line, Reason: "路径不能为空"}
		}

		// 不含逗号的值整体视为字面路径，其中的权重分隔符不做解释。
		if !strings.Contains(value, targetDelim) {
			entries[key] = pathEntry{single: value}
			continue
		}

		parts := strings.Split(value, targetDelim)
		targets := make([]Target, 0, len(parts))
		var total int64
		for _, part := range parts {
			pathPart, weightPart, ok := strings.Cut(part, weightDelim)
			if !ok {
				return nil, ParseError{File: name, Line: line, Reason: fmt.Sprintf("缺少权重分隔符 %q", weightDelim)}
			}
			pathPart = strings.TrimSpace(pathPart)
			weightPart = strings.TrimSpace(weightPart)
			if pathPart == "" {
				return nil, ParseError{File: name, Line: line, Reason: "路径不能为空"}
			}
			weight, err := strconv.ParseInt(weightPart, 10, 64)
			if err != nil || weight < 0 {
				return nil, ParseError{File: name, Line: line, Reason: fmt.Sprintf("权重无效: %q", weightPart)}
			}
			targets = append(targets, Target{Path: pathPart, Weight: weight})
			total += weight
		}
		if total <= 0 {
			return nil, ParseError{File: name, Line: line, Reason: "总权重必须大于 0"}
		}
		entries[key] = pathEntry{targets: targets, total: total}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Table{entries: entries}, nil
}

// Resolve 返回 key 对应的物理路径，加权条目每次调用重新抽样。
// key 未登记时返回 ("", false)；nil Table 等价于空表。
func (t *Table) Resolve(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	entry, ok := t.entries[key]
	if !ok {
		return "", false
	}
	if len(entry.targets) == 0 {
		return entry.single, true
	}

	n := drawWeight(entry.total)
	for _, target := range entry.targets {
		if n < target.Weight {
			return target.Path, true
		}
		n -= target.Weight
	}
	// drawWeight 的取值范围保证循环内必然命中
	return entry.targets[len(entry.targets)-1].Path, true
}

// Len 返回映射条目数量。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entry 是诊断接口使用的只读条目视图。
type Entry struct {
	Key     string
	Targets []Target
}

// Entries 按键排序导出全部条目，单一目标以权重 0 的单元素切片表示。
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}

	result := make([]Entry, 0, len(t.entries))
	for key, entry := range t.entries {
		view := Entry{Key: key}
		if len(entry.targets) == 0 {
			view.Targets = []Target{{Path: entry.single}}
		} else {
			view.Targets = append([]Target(nil), entry.targets...)
		}
		result = append(result, view)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result
}

// String 以源文件语法渲染映射内容，供启动日志输出。
func (t *Table) String() string {
	var sb strings.Builder
	for i, entry := range t.Entries() {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(entry.Key)
		sb.WriteString(" -> ")
		for j, target := range entry.Targets {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(target.Path)
			if len(entry.Targets) > 1 {
				fmt.Fprintf(&sb, "'%d", target.Weight)
			}
		}
	}
	return sb.String()
}
