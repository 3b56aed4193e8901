package cache

// Entry 是一份驻留内存的文件快照，创建后不可变，可在读者间安全共享。
type Entry struct {
	data []byte
}

// Len 返回条目字节数。
func (e Entry) Len() int64 {
	return int64(len(e.data))
}

// Bytes 返回条目内容的副本，调用方可以任意修改。
func (e Entry) Bytes() []byte {
	return append([]byte(nil), e.data...)
}
