package queue

const nilIndex = -1

type dequeNode struct {
	task PendingFetch
	next int
}

// deque is a singly linked FIFO with O(1) push at both ends, stored in a growable arena
// Released slots go to a free list and are reused before the arena grows
type deque struct {
	nodes []dequeNode
	head  int
	tail  int
	free  int
	size  int
}

func newDeque() deque {
	return deque{head: nilIndex, tail: nilIndex, free: nilIndex}
}

func (d *deque) alloc(task PendingFetch) int {
	if d.free != nilIndex {
		i := d.free
		d.free = d.nodes[i].next
		d.nodes[i] = dequeNode{task: task, next: nilIndex}
		return i
	}
	d.nodes = append(d.nodes, dequeNode{task: task, next: nilIndex})
	return len(d.nodes) - 1
}

func (d *deque) pushBack(task PendingFetch) {
	i := d.alloc(task)
	if d.size == 0 {
		d.head = i
	} else {
		d.nodes[d.tail].next = i
	}
	d.tail = i
	d.size++
}

func (d *deque) pushFront(task PendingFetch) {
	i := d.alloc(task)
	if d.size == 0 {
		d.tail = i
	} else {
		d.nodes[i].next = d.head
	}
	d.head = i
	d.size++
}

func (d *deque) popFront() (PendingFetch, bool) {
	if d.size == 0 {
		return PendingFetch{}, false
	}
	i := d.head
	task := d.nodes[i].task
	d.head = d.nodes[i].next
	d.nodes[i] = dequeNode{next: d.free} // drop references held by the task
	d.free = i
	d.size--
	if d.size == 0 {
		d.head, d.tail = nilIndex, nilIndex
	}
	return task, true
}

// drain pops every task in order
func (d *deque) drain() []PendingFetch {
	out := make([]PendingFetch, 0, d.size)
	for {
		task, ok := d.popFront()
		if !ok {
			return out
		}
		out = append(out, task)
	}
}

func (d *deque) clear() {
	*d = newDeque()
}

func (d *deque) len() int {
	return d.size
}
