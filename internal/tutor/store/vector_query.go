package store

import (
	"strings"

	"github.com/pgvector/pgvector-go"
)

// vectorQuery 参数化的 pgvector 相似度查询。
// 距离使用余弦运算符 <=>，等于 1 减余弦相似度。
type vectorQuery struct {
	vec         pgvector.Vector
	maxDistance float64
	filter      SearchFilter
	limit       int
}

func newVectorQuery(vec []float32, filter SearchFilter, k int, minSimilarity float64) vectorQuery {
	return vectorQuery{
		vec:         pgvector.NewVector(vec),
		maxDistance: 1 - minSimilarity,
		filter:      filter,
		limit:       k,
	}
}

// build 返回带 ? 占位符的 SQL 及参数
func (q vectorQuery) build() (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, 6)

	sb.WriteString("SELECT step_id, lesson_id, section_id, course_id, chunk_index, content, ")
	sb.WriteString("embedding <=> CAST(? AS vector) AS distance ")
	args = append(args, q.vec)

	sb.WriteString("FROM step_embeddings WHERE embedding <=> CAST(? AS vector) <= ?")
	args = append(args, q.vec, q.maxDistance)

	if q.filter.CourseID != "" {
		sb.WriteString(" AND course_id = ?")
		args = append(args, q.filter.CourseID)
	}
	if q.filter.SectionID != "" {
		sb.WriteString(" AND section_id = ?")
		args = append(args, q.filter.SectionID)
	}

	sb.WriteString(" ORDER BY distance ASC, step_id ASC, chunk_index ASC LIMIT ?")
	args = append(args, q.limit)

	return sb.String(), args
}
