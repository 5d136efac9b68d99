package fixture

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ecobox-ge/ecobox-api/internal/rowstore"
)

// DemoPassword signs in every seeded account.
const DemoPassword = "EcoBox#2024"

const day = 24 * time.Hour

// NewSeeded returns a store loaded with the demo schools, devices, catalogs
// and accounts. bcryptCost lets tests skip the expensive default.
func NewSeeded(pub Publisher, now time.Time, bcryptCost int, opts ...Option) (*Store, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt.GenerateFromPassword -> %w", err)
	}

	s := New(pub, opts...)
	for table, rows := range seedRows(now, string(hash)) {
		s.Load(table, rows...)
	}
	return s, nil
}

func seedRows(now time.Time, hash string) map[string][]rowstore.Row {
	school := func(id, name, city, region string, students, classes, papers, monthly, ranking int) rowstore.Row {
		return rowstore.Row{
			"id": id, "name": name, "city": city, "region": region,
			"total_students": students, "total_classes": classes, "total_papers": papers,
			"monthly_papers": monthly, "ranking": ranking,
		}
	}
	device := func(id, schoolID, location, status string, current, daily int, seen time.Time, lat, lng float64) rowstore.Row {
		return rowstore.Row{
			"id": id, "school_id": schoolID, "location": location, "status": status,
			"total_capacity": 100, "current_capacity": current, "daily_collections": daily,
			"last_data_received": seen, "coordinates_lat": lat, "coordinates_lng": lng,
		}
	}
	profile := func(id, email, first, last, role string, schoolID, classID any, papers int, joined time.Time) rowstore.Row {
		return rowstore.Row{
			"id": id, "email": email, "first_name": first, "last_name": last, "role": role,
			"school_id": schoolID, "class_id": classID, "total_papers": papers,
			"joined_date": joined, "last_active": now,
		}
	}

	rows := map[string][]rowstore.Row{
		rowstore.TableSchools: {
			school("1", "თბილისის #1 საჯარო სკოლა", "თბილისი", "კახეთი", 450, 18, 2340, 890, 1),
			school("2", "ბათუმის #12 საჯარო სკოლა", "ბათუმი", "აჭარა", 320, 14, 1890, 720, 2),
			school("3", "გორის #7 საჯარო სკოლა", "გორი", "შიდა ქართლი", 280, 12, 1567, 620, 3),
			school("4", "ქუთაისის #5 საჯარო სკოლა", "ქუთაისი", "იმერეთი", 385, 16, 1423, 580, 4),
			school("5", "რუსთავის #9 საჯარო სკოლა", "რუსთავი", "ქვემო ქართლი", 290, 13, 1234, 510, 5),
		},
		rowstore.TableClasses: {
			{"id": "class1", "school_id": "1", "name": "7ა", "grade": 7, "student_count": 25, "total_papers": 340, "teacher_id": "t1", "teacher_name": "ნინო გელაშვილი"},
			{"id": "class2", "school_id": "1", "name": "8ბ", "grade": 8, "student_count": 28, "total_papers": 420, "teacher_id": "t2", "teacher_name": "გიორგი მახარაძე"},
			{"id": "class3", "school_id": "2", "name": "9ა", "grade": 9, "student_count": 22, "total_papers": 290, "teacher_id": "t3", "teacher_name": "მარიამ ხუციშვილი"},
		},
		rowstore.TableDevices: {
			device("eco1", "1", "მთავარი შენობა - 1 სართული", "online", 65, 45, now, 41.7151, 44.8271),
			device("eco2", "1", "ბიბლიოთეკა", "online", 23, 32, now, 41.7151, 44.8271),
			device("eco3", "2", "ცენტრალური ჰოლი", "online", 78, 38, now, 41.6168, 41.6367),
			device("eco4", "3", "მეორე სართული", "maintenance", 45, 28, now.Add(-time.Hour), 41.9838, 44.1085),
			device("eco5", "4", "სპორტული დარბაზი", "online", 12, 35, now, 42.2679, 42.7010),
			device("eco6", "5", "კაფეტერია", "full", 98, 42, now, 41.5495, 44.9965),
		},
		rowstore.TableProfiles: {
			profile("user1", "nika.kartvelishvili@student.edu.ge", "ნიკა", "ქართველიშვილი", "student", "1", "class2", 156, now.Add(-60*day)),
			profile("s1", "ana.tovlidze@student.edu.ge", "ანა", "თოვლიძე", "student", "1", "class1", 234, now.Add(-90*day)),
			profile("s2", "giorgi.lortkipanidze@student.edu.ge", "გიორგი", "ლორთქიფანიძე", "student", "2", "class3", 198, now.Add(-90*day)),
			profile("s3", "nino.kalandadze@student.edu.ge", "ნინო", "კალანდაძე", "student", "3", nil, 187, now.Add(-80*day)),
			profile("s4", "davit.meladze@student.edu.ge", "დავითი", "მელაძე", "student", "4", nil, 156, now.Add(-70*day)),
			profile("s5", "mariami.gviniashvili@student.edu.ge", "მარიამი", "ღვინიაშვილი", "student", "5", nil, 145, now.Add(-70*day)),
			profile("t1", "nino.gelashvili@edu.ge", "ნინო", "გელაშვილი", "teacher", "1", "class1", 0, now.Add(-120*day)),
			profile("admin", "admin@ecobox.ge", "EcoBox", "Admin", "admin", nil, nil, 0, now.Add(-365*day)),
		},
		rowstore.TableAchievements: {
			{"id": "ach1", "name": "Eco Champion", "name_georgian": "ეკო-ჩემპიონი", "description": "Recycle 100 papers", "description_georgian": "100 ფურცელი რეციკლირება", "icon": "🏆", "category": "recycling", "requirement": 100, "rarity": "rare"},
			{"id": "ach2", "name": "Green Friend", "name_georgian": "მწვანე მეგობარი", "description": "First recycling submission", "description_georgian": "პირველი რეციკლირების წარდგენა", "icon": "🌱", "category": "recycling", "requirement": 1, "rarity": "common"},
			{"id": "ach3", "name": "Recycling Star", "name_georgian": "რეციკლინგ ვარსკვლავი", "description": "Top 10 in school ranking", "description_georgian": "ტოპ 10 სკოლის რეიტინგში", "icon": "⭐", "category": "competition", "requirement": 10, "rarity": "epic"},
			{"id": "ach4", "name": "Environment Protector", "name_georgian": "გარემოს დამცველი", "description": "Complete 30-day streak", "description_georgian": "30-დღიანი უწყვეტი მონაწილეობა", "icon": "🛡️", "category": "streak", "requirement": 30, "rarity": "legendary"},
			{"id": "ach5", "name": "Paper Warrior", "name_georgian": "ქაღალდის მეომარი", "description": "Recycle 500 papers", "description_georgian": "500 ფურცელი რეციკლირება", "icon": "⚔️", "category": "recycling", "requirement": 500, "rarity": "epic"},
		},
		rowstore.TableUserAchieve: {
			{"id": "ua1", "user_id": "user1", "achievement_id": "ach1", "progress": 100, "earned_date": now.Add(-10 * day)},
			{"id": "ua2", "user_id": "user1", "achievement_id": "ach2", "progress": 1, "earned_date": now.Add(-45 * day)},
			{"id": "ua3", "user_id": "user1", "achievement_id": "ach3", "progress": 8, "earned_date": nil},
		},
		rowstore.TableChallenges: {
			{"id": "ch1", "title": "Weekly Paper Challenge", "title_georgian": "კვირეული ქაღალდის გამოწვევა", "description": "Collect 20 papers this week", "description_georgian": "შეაგროვე 20 ფურცელი ამ კვირაში", "type": "weekly", "target": 20, "reward": 50, "start_date": now.Add(-day), "end_date": now.Add(7 * day), "participants": 342},
			{"id": "ch2", "title": "Earth Day Special", "title_georgian": "დედამიწის დღის სპეციალური", "description": "School-wide recycling competition", "description_georgian": "სკოლის მასშტაბის რეციკლინგ კონკურსი", "type": "special", "target": 1000, "reward": 500, "start_date": now.Add(-day), "end_date": now.Add(30 * day), "participants": 1200},
			{"id": "ch3", "title": "Spring Sprint", "title_georgian": "გაზაფხულის სპრინტი", "description": "Collect 50 papers in a month", "description_georgian": "შეაგროვე 50 ფურცელი ერთ თვეში", "type": "monthly", "target": 50, "reward": 120, "start_date": now.Add(-60 * day), "end_date": now.Add(-30 * day), "participants": 410},
		},
		rowstore.TableUserChallenge: {
			{"id": "uc1", "user_id": "user1", "challenge_id": "ch1", "progress": 12, "completed": false, "joined_date": now.Add(-day)},
		},
		rowstore.TableNotifications: {
			{"id": "n1", "user_id": "user1", "type": "achievement", "title": "New achievement", "title_georgian": "ახალი მიღწევა", "message": "You earned Eco Champion", "message_georgian": "თქვენ მიიღეთ ეკო-ჩემპიონი", "read": false, "created_at": now.Add(-10 * day), "action_url": "/achievements", "icon": "🏆"},
			{"id": "n2", "user_id": "user1", "type": "challenge", "title": "Weekly challenge", "title_georgian": "კვირეული გამოწვევა", "message": "A new weekly challenge started", "message_georgian": "დაიწყო ახალი კვირეული გამოწვევა", "read": true, "created_at": now.Add(-day), "action_url": "/challenges", "icon": nil},
		},
		rowstore.TableEcoTips: {
			{"id": "tip1", "title": "Paper Recycling", "title_georgian": "ქაღალდის რეციკლირება", "content": "Always separate clean paper from contaminated materials", "content_georgian": "ყოველთვის გამოყავი სუფთა ქაღალდი დაბინძურებული მასალებისგან", "category": "recycling", "difficulty": "easy", "impact": "high", "icon": "📄"},
			{"id": "tip2", "title": "Energy Saving", "title_georgian": "ენერგიის დაზოგვა", "content": "Turn off lights when leaving the classroom", "content_georgian": "გამორთე შუქი კლასიდან გასვლისას", "category": "energy", "difficulty": "easy", "impact": "medium", "icon": "💡"},
			{"id": "tip3", "title": "Water Conservation", "title_georgian": "წყლის დაზოგვა", "content": "Fix leaky faucets to save water", "content_georgian": "შეაკეთე მდინარე ონკანები წყლის დასაზოგად", "category": "water", "difficulty": "medium", "impact": "high", "icon": "💧"},
		},
	}

	quiz := func(id, question, questionKa string, options, optionsKa []string, correct int, explanation, explanationKa, category, difficulty string) rowstore.Row {
		return rowstore.Row{
			"id": id, "question": question, "question_georgian": questionKa,
			"options": options, "options_georgian": optionsKa, "correct_answer": correct,
			"explanation": explanation, "explanation_georgian": explanationKa,
			"category": category, "difficulty": difficulty, "created_at": now,
		}
	}
	percents := []string{"50%", "75%", "90%", "100%"}
	rows[rowstore.TableQuiz] = []rowstore.Row{
		quiz("q1", "What percentage of paper can typically be recycled?", "ქაღალდის რა პროცენტი შეიძლება ჩვეულებრივ გადამუშავდეს?",
			percents, percents, 2,
			"Up to 90% of paper can be recycled, making it one of the most recyclable materials.",
			"ქაღალდის 90%-მდე შეიძლება გადამუშავდეს, რაც მას ერთ-ერთ ყველაზე გადამუშავებად მასალად აქცევს.",
			"recycling", "medium"),
		quiz("q2", "How many times can paper be recycled?", "რამდენჯერ შეიძლება ქაღალდის გადამუშავება?",
			[]string{"2-3 times", "5-7 times", "10+ times", "Unlimited"}, []string{"2-3-ჯერ", "5-7-ჯერ", "10+-ჯერ", "უსასრულოდ"}, 1,
			"Paper can typically be recycled 5-7 times before the fibers become too short.",
			"ქაღალდი ჩვეულებრივ 5-7-ჯერ შეიძლება გადამუშავდეს, სანამ ბოჭკოები ძალიან მოკლე გახდება.",
			"recycling", "hard"),
		quiz("q3", "Which action saves the most energy at home?", "რომელი მოქმედება ზოგავს ყველაზე მეტ ენერგიას სახლში?",
			[]string{"Turning off lights", "Using LED bulbs", "Adjusting thermostat", "Unplugging devices"},
			[]string{"განათების გამორთვა", "LED ნათურების გამოყენება", "თერმოსტატის რეგულირება", "მოწყობილობების გამორთვა"}, 2,
			"Adjusting your thermostat by just 1-2 degrees can save 10% on energy bills.",
			"თერმოსტატის მხოლოდ 1-2 გრადუსით რეგულირება შეიძლება ენერგიის ბილის 10% შეზოგვას.",
			"energy", "medium"),
		quiz("q4", "How much water does the average person use per day?", "რამდენ წყალს იყენებს საშუალო ადამიანი დღეში?",
			[]string{"50 liters", "100 liters", "150 liters", "200 liters"}, []string{"50 ლიტრი", "100 ლიტრი", "150 ლიტრი", "200 ლიტრი"}, 2,
			"The average person uses about 150 liters of water per day for drinking, cooking, and hygiene.",
			"საშუალო ადამიანი დღეში დაახლოებით 150 ლიტრ წყალს იყენებს სმისთვის, კულინარიისთვის და ჰიგიენისთვის.",
			"water", "easy"),
		quiz("q5", "What is the main cause of plastic pollution in oceans?", "რა არის ოკეანეებში პლასტიკური დაბინძურების მთავარი მიზეზი?",
			[]string{"Fishing gear", "Bottles and containers", "Microplastics", "Shopping bags"},
			[]string{"თევზაობის აღჭურვილობა", "ბოთლები და კონტეინერები", "მიკროპლასტიკი", "საყიდლების პაკეტები"}, 0,
			"Lost or discarded fishing gear accounts for about 46% of plastic pollution in oceans.",
			"დაკარგული ან მიტოვებული თევზაობის აღჭურვილობა ოკეანეებში პლასტიკური დაბინძურების დაახლოებით 46%-ს შეადგენს.",
			"general", "hard"),
	}

	for _, p := range rows[rowstore.TableProfiles] {
		rows[rowstore.TableCredentials] = append(rows[rowstore.TableCredentials], rowstore.Row{
			"id": "cred-" + p["id"].(string), "user_id": p["id"], "email": p["email"], "password_hash": hash, "created_at": now,
		})
	}

	// user1's 156 papers as one 13-paper submission on each of the last 12 days.
	for i := 0; i < 12; i++ {
		rows[rowstore.TableSubmissions] = append(rows[rowstore.TableSubmissions], rowstore.Row{
			"id": fmt.Sprintf("sub-user1-%02d", i), "user_id": "user1", "ecobox_id": "eco1",
			"papers_count": 13, "submission_date": now.Add(-time.Duration(i) * day), "verified": true,
		})
	}

	return rows
}
