package canvas

// Point 是画布坐标系中的一个点。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerDown 命中字段时开始拖拽，记录指针相对字段锚点的偏移，并回调 OnSelect。
func (s *Surface) PointerDown(x, y float64) bool {
	i := s.hitIndex(x, y)
	if i < 0 {
		s.release()
		return false
	}
	f := s.fields[i]
	s.active = i
	s.offsetX = x - f.X
	s.offsetY = y - f.Y
	if s.OnSelect != nil {
		s.OnSelect(f.FieldPath, f.Text)
	}
	return true
}

// PointerMove 在拖拽中把目标移动到 (指针 - 偏移)，坐标不小于 0。
func (s *Surface) PointerMove(x, y float64) bool {
	if s.active < 0 || s.active >= len(s.fields) {
		return false
	}
	f := &s.fields[s.active]
	f.X = max(0, x-s.offsetX)
	f.Y = max(0, y-s.offsetY)
	return true
}

// PointerUp 结束拖拽。
func (s *Surface) PointerUp() {
	s.release()
}

// PointerLeave 指针离开画布时同样结束拖拽。
func (s *Surface) PointerLeave() {
	s.release()
}

// TouchStart 使用主触点，协议与鼠标一致。
func (s *Surface) TouchStart(touches []Point) bool {
	if len(touches) == 0 {
		return false
	}
	return s.PointerDown(touches[0].X, touches[0].Y)
}

func (s *Surface) TouchMove(touches []Point) bool {
	if len(touches) == 0 {
		return false
	}
	return s.PointerMove(touches[0].X, touches[0].Y)
}

func (s *Surface) TouchEnd() {
	s.release()
}

// Dragging 返回当前拖拽目标。
func (s *Surface) Dragging() (DraggableField, bool) {
	if s.active < 0 || s.active >= len(s.fields) {
		return DraggableField{}, false
	}
	return s.fields[s.active], true
}

func (s *Surface) release() {
	s.active = -1
	s.offsetX, s.offsetY = 0, 0
}
