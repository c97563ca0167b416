// Package flappy provides a headless implementation of a side-scrolling
// game in which a bird must flap through gaps between pipes. Physics
// are simulated with Box2D and frames are rendered with gg.
package flappy

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
	"github.com/samuelfneumann/deepflap/environment"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	FPS float64 = 30

	// Pixels per Box2D unit
	Scale float64 = 30.0

	ViewportW float64 = 288
	ViewportH float64 = 512

	// Height of the top of the ground, in pixels from the top of the
	// screen
	GroundY float64 = ViewportH * 0.79

	YGravity     float64 = -30.0
	FlapVelocity float64 = 9.0  // In Box2D units per second
	MaxFallSpeed float64 = 10.0 // In Box2D units per second
	PipeSpeed    float64 = 4.0  // In Box2D units per second

	BirdX      float64 = ViewportW * 0.2 // In pixels
	BirdRadius float64 = 12.0            // In pixels

	PipeWidth   float64 = 52.0  // In pixels
	PipeHeight  float64 = 320.0 // In pixels
	PipeGap     float64 = 100.0 // In pixels
	PipeSpacing float64 = ViewportW/2 + PipeWidth/2
	NumPipes    int     = 2

	// Rewards
	AliveReward float64 = 0.1
	PassReward  float64 = 1.0
	CrashReward float64 = -1.0
)

// Player determines who controls the bird
type Player int

const (
	Human Player = iota
	Computer
)

var (
	skyShade      = color.RGBA{R: 78, G: 192, B: 202, A: 255}
	obstacleShade = color.Black
	birdShade     = color.Black
)

// WorldToPixelCoord converts Box2D coordinates to pixel coordinates
func WorldToPixelCoord(x, y float64) (float64, float64) {
	return Scale * x, ViewportH - Scale*y
}

// PixelToWorldCoord converts pixel coordinates to Box2D coordinates
func PixelToWorldCoord(x, y float64) (float64, float64) {
	return x / Scale, (ViewportH - y) / Scale
}

// contactDetector ends the game whenever the bird touches anything
type contactDetector struct {
	env *Flappy
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	if c.env.bird == contact.GetFixtureA().GetBody() ||
		c.env.bird == contact.GetFixtureB().GetBody() {
		c.env.crashed = true
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {}

func (c *contactDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}

// pipePair is a pair of pipes, one hanging from the top of the screen
// and one rising from the ground, with a gap between them
type pipePair struct {
	top    *box2d.B2Body
	bottom *box2d.B2Body
	gapY   float64 // Pixel height of the top of the gap
	passed bool
}

// x returns the pixel x coordinate of the centre of the pipes
func (p *pipePair) x() float64 {
	x, _ := WorldToPixelCoord(p.top.GetPosition().X, 0)
	return x
}

// Flappy implements the game
type Flappy struct {
	world box2d.B2World

	bird   *box2d.B2Body
	ground *box2d.B2Body
	pipes  []*pipePair

	player  Player
	crashed bool
	over    bool
	score   int
	steps   int

	gapDist distuv.Uniform
}

// New returns a new game. The game must be handed to the computer with
// SetPlayerComputer before it can be stepped.
func New(seed uint64) *Flappy {
	f := &Flappy{
		player: Human,
		gapDist: distuv.Uniform{
			Min: GroundY * 0.2,
			Max: GroundY*0.8 - PipeGap,
			Src: rand.NewSource(seed),
		},
	}
	f.build()
	return f
}

// SetPlayerComputer implements the environment.Environment interface
func (f *Flappy) SetPlayerComputer() {
	f.player = Computer
}

// Score returns the number of pipes passed in the current episode
func (f *Flappy) Score() int {
	return f.score
}

// Steps returns the number of frames stepped in the current episode
func (f *Flappy) Steps() int {
	return f.steps
}

// Reset implements the environment.Environment interface
func (f *Flappy) Reset() (image.Image, error) {
	f.build()
	return f.render(), nil
}

// build creates a new world with the bird at its starting position
// and the pipes off the right of the screen
func (f *Flappy) build() {
	f.world = box2d.MakeB2World(box2d.MakeB2Vec2(0, YGravity))
	f.world.SetContactListener(&contactDetector{f})
	f.crashed = false
	f.over = false
	f.score = 0
	f.steps = 0

	// Ground
	groundDef := box2d.MakeB2BodyDef()
	groundDef.Type = 0 // Static body
	gx, gy := PixelToWorldCoord(ViewportW/2, (GroundY+ViewportH)/2)
	groundDef.Position = box2d.MakeB2Vec2(gx, gy)
	f.ground = f.world.CreateBody(&groundDef)

	groundShape := box2d.NewB2PolygonShape()
	groundShape.SetAsBox(ViewportW/Scale/2, (ViewportH-GroundY)/Scale/2)
	groundFix := box2d.MakeB2FixtureDef()
	groundFix.Shape = groundShape
	f.ground.CreateFixtureFromDef(&groundFix)

	// Bird
	birdDef := box2d.MakeB2BodyDef()
	birdDef.Type = 2 // Dynamic body
	birdDef.FixedRotation = true
	bx, by := PixelToWorldCoord(BirdX, ViewportH/2)
	birdDef.Position = box2d.MakeB2Vec2(bx, by)
	f.bird = f.world.CreateBody(&birdDef)

	birdShape := box2d.NewB2CircleShape()
	birdShape.M_radius = BirdRadius / Scale
	birdFix := box2d.MakeB2FixtureDef()
	birdFix.Shape = birdShape
	birdFix.Density = 1.0
	birdFix.IsSensor = true
	f.bird.CreateFixtureFromDef(&birdFix)

	// Pipes
	f.pipes = make([]*pipePair, NumPipes)
	for i := range f.pipes {
		f.pipes[i] = f.newPipePair()
		f.placePipePair(f.pipes[i], ViewportW+PipeWidth+float64(i)*PipeSpacing)
	}
}

// newPipePair adds the bodies of a pair of pipes to the world
func (f *Flappy) newPipePair() *pipePair {
	bodies := make([]*box2d.B2Body, 2)
	for i := range bodies {
		def := box2d.MakeB2BodyDef()
		def.Type = 1 // Kinematic body
		def.LinearVelocity = box2d.MakeB2Vec2(-PipeSpeed, 0)
		bodies[i] = f.world.CreateBody(&def)

		shape := box2d.NewB2PolygonShape()
		shape.SetAsBox(PipeWidth/Scale/2, PipeHeight/Scale/2)
		fix := box2d.MakeB2FixtureDef()
		fix.Shape = shape
		bodies[i].CreateFixtureFromDef(&fix)
	}
	return &pipePair{top: bodies[0], bottom: bodies[1]}
}

// placePipePair moves a pair of pipes so that their centre is at the
// pixel x coordinate x and samples a new gap height
func (f *Flappy) placePipePair(p *pipePair, x float64) {
	p.gapY = f.gapDist.Rand()
	p.passed = false

	tx, ty := PixelToWorldCoord(x, p.gapY-PipeHeight/2)
	p.top.SetTransform(box2d.MakeB2Vec2(tx, ty), 0)

	bx, by := PixelToWorldCoord(x, p.gapY+PipeGap+PipeHeight/2)
	p.bottom.SetTransform(box2d.MakeB2Vec2(bx, by), 0)
}

// FrameStep implements the environment.Environment interface. After an
// episode has ended, the next call to FrameStep starts a new episode.
func (f *Flappy) FrameStep(a mat.Vector) (image.Image, float64, bool,
	error) {
	if f.player != Computer {
		return nil, 0, false, fmt.Errorf("framestep: the game is not " +
			"controlled by the computer")
	}
	action, err := environment.ActionIndex(a)
	if err != nil {
		return nil, 0, false, fmt.Errorf("framestep: %v", err)
	}

	if f.over {
		f.build()
	}

	if action == 1 {
		f.bird.SetLinearVelocity(box2d.MakeB2Vec2(0, FlapVelocity))
	}

	f.world.Step(1.0/FPS, 6, 2)
	f.steps++

	// The bird falls no faster than MaxFallSpeed and cannot leave the
	// top of the screen
	pos := f.bird.GetPosition()
	vel := f.bird.GetLinearVelocity()
	if vel.Y < -MaxFallSpeed {
		f.bird.SetLinearVelocity(box2d.MakeB2Vec2(0, -MaxFallSpeed))
	}
	if top := ViewportH/Scale - BirdRadius/Scale; pos.Y > top {
		f.bird.SetTransform(box2d.MakeB2Vec2(pos.X, top), 0)
		f.bird.SetLinearVelocity(box2d.MakeB2Vec2(0, math.Min(vel.Y, 0)))
	}

	reward := AliveReward

	// Score pipes which the bird has flown past and recycle pipes which
	// have left the screen
	rightmost := math.Inf(-1)
	for _, p := range f.pipes {
		rightmost = math.Max(rightmost, p.x())
	}
	for _, p := range f.pipes {
		if !p.passed && p.x() < BirdX {
			p.passed = true
			f.score++
			reward = PassReward
		}
		if p.x()+PipeWidth/2 < 0 {
			f.placePipePair(p, rightmost+PipeSpacing)
			rightmost += PipeSpacing
		}
	}

	_, birdY := WorldToPixelCoord(f.bird.GetPosition().X,
		f.bird.GetPosition().Y)
	if f.crashed || birdY+BirdRadius >= GroundY {
		f.over = true
		reward = CrashReward
	}

	return f.render(), reward, f.over, nil
}

// render draws the current frame
func (f *Flappy) render() image.Image {
	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyShade)
	dc.Clear()

	// Pipes
	dc.SetColor(obstacleShade)
	for _, p := range f.pipes {
		left := p.x() - PipeWidth/2
		dc.DrawRectangle(left, 0, PipeWidth, p.gapY)
		dc.DrawRectangle(left, p.gapY+PipeGap, PipeWidth,
			GroundY-(p.gapY+PipeGap))
	}
	dc.Fill()

	// Ground
	dc.DrawRectangle(0, GroundY, ViewportW, ViewportH-GroundY)
	dc.Fill()

	// Bird
	x, y := WorldToPixelCoord(f.bird.GetPosition().X, f.bird.GetPosition().Y)
	dc.SetColor(birdShade)
	dc.DrawCircle(x, y, BirdRadius)
	dc.Fill()

	return dc.Image()
}

// SaveFrame saves a frame as a PNG image
func SaveFrame(path string, frame image.Image) error {
	return gg.SavePNG(path, frame)
}
